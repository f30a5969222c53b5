// Package journal persists the operation log and the transport's cookies in
// a local SQLite database.
//
// Every dispatched operation is one row in operations; its outcome is one
// row in completions. Chained operations share the flow token of the
// operation that started them, so ReadFlow returns a login together with the
// identity fetch it triggered.
//
// Schema:
//
//	operations(id, flow_token, op, args, seq, dispatched_at)
//	completions(operation_id, outcome, message, seq)
//	cookies(host, path, name, value, domain, expires, secure, http_only)
//
// The database runs in WAL mode with a single connection; migrations are
// tracked with PRAGMA user_version.
package journal
