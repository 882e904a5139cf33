// Package gateway drives the Spotify OAuth2 authorization-code flow for a session and decides whether a
// session may call the Spotify API.
//
// A session moves through these states:
//
//	Anonymous --InitiateLogin--> PendingState --HandleCallback--> Authenticated
//	Authenticated --RefreshIfExpired--> Authenticated (refreshed)
//
// Only store expiry returns a session to Anonymous. The gateway mutates the [models.Session] it is
// given; persisting it is the caller's job.
package gateway
