// Package session holds the signed-in identity and the authentication
// lifecycle: login, registration, email verification, logout and the
// password flows.
//
// The slice is a plain struct mutated only through its operations.
// Subscribers receive a snapshot after every transition. Authenticated state
// is set only by the identity fetch (GetCurrentUser); login and verification
// chain that fetch and succeed only when it does.
package session
