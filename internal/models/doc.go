// Package models defines the server-side session record and its persistence interface.
//
// A [Session] is keyed by an opaque identifier carried in the client's signed cookie. It holds:
//   - the pending OAuth state nonce between /login and /callback
//   - the Spotify [Credentials], nil while the session is anonymous
//   - the [Message] history forwarded to the completion provider
//
// The [SessionStore] interface is implemented by the repositories package (SQLite and in-memory).
// Stores apply their own expiry; an expired session reads as [shared.ErrSessionNotFound].
package models
