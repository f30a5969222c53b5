// Package gateway maps each marketplace operation to exactly one HTTP call.
//
// Every successful (2xx) call returns the decoded {success, message, data}
// envelope. Every failure, whether the server answered non-2xx or the
// request never got an answer, returns a *APIError carrying a single
// human-readable message, the HTTP status (0 when there was none) and a
// transport code. Nothing is retried.
//
// The access proof is an opaque session cookie set by the server. The client
// attaches it through its http.CookieJar and never reads it.
//
// A 401 emits an UnauthenticatedEvent to subscribers before the error is
// returned, unless the hosting shell reports it is already at the entry
// route.
package gateway
