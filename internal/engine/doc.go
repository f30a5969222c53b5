// Package engine is the orchestrator runtime shared by the state slices.
//
// An orchestrator operation is a named asynchronous unit of work with its own
// pending/succeeded/failed lifecycle. The slices own their state; the engine
// owns what every operation has in common:
//
//   - a logical Clock stamping each dispatch with a generation, so a fetch
//     that resolves after a newer fetch of the same kind can be discarded
//   - flow tokens correlating a top-level dispatch with the operations it
//     chains (login -> getCurrentUser inherits the login flow)
//   - a Recorder receiving every dispatch and completion (the SQLite journal
//     in production, an in-memory trace in tests)
//   - a Hub delivering state snapshots to subscribers
//
// Slices apply completions under their own mutex and publish after
// unlocking, so a subscriber may safely read or dispatch from its callback.
package engine
