// Package services wraps the external HTTP APIs the relay talks to.
//
// # Spotify
//
// [SpotifyService] owns the OAuth2 configuration (authorization URL, code exchange and
// refresh, all with HTTP Basic client authentication) and the handful of Web API calls the
// relay needs: the current user's profile, top artists, top tracks and seeded
// recommendations. It is stateless with respect to users; every API call takes the bearer
// token of the session it serves.
//
// # Completion providers
//
// A [Completer] turns a conversation history into the next assistant reply.
// [OpenAICompleter] is the default and [AnthropicCompleter] the alternative, selected by
// completion.provider through [NewCompleter]. Both SDK clients are built with retries
// disabled so a failed call surfaces immediately.
//
// # Error Handling
//
// Errors wrap sentinels from the shared package:
//   - [shared.ErrMissingCredentials] : client id, client secret or API key not configured
//   - [shared.ErrAPIRequest] : Spotify returned a non-2xx status or the transport failed
//   - [shared.ErrUpstream] : the completion provider failed or returned no content
package services
