// Package repositories implements persistence for server-side sessions.
//
// Key Implementations:
//   - [SessionRepository] : SQLite store backed by the sessions table, used by default
//   - [MemorySessionStore] : mutex-guarded map for tests and single-process deployments without a database
//
// Both satisfy [models.SessionStore] and apply a sliding expiry: every Put pushes the
// deadline out by the configured TTL, and a session past its deadline reads as
// [shared.ErrSessionNotFound]. Sessions are stored as JSON so a caller never shares
// memory with the store.
package repositories
