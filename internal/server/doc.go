// Package server exposes the relay over HTTP.
//
// # Routing
//
// [NewRouter] builds a chi router with request ids, real client IPs, panic recovery, request logging,
// metrics and a CORS allow-list. Route groups implement [Handler], registering their own routes on the
// router they are given:
//   - [OAuthHandler] : GET /login and GET /callback, rate limited per client IP
//   - [ChatHandler] : POST /api/chat, POST /api/reset and GET /api/user-profile
//
// GET /health, GET /metrics and the static frontend under / sit outside the session layer.
//
// # Sessions
//
// [SessionManager] keeps only the session id in a signed cookie (gorilla/sessions). The session record
// itself lives in a [models.SessionStore]. The middleware loads or creates the record, hands it to the
// handler through the request context and saves it before the first byte of the response is written.
//
// # Authentication Guard
//
// Routes that call Spotify sit behind [ChatHandler.RequireAuth], which asks the gateway to verify and
// refresh credentials. Failures answer 401 JSON (auth_mode "api") or redirect to /login (auth_mode "web").
package server
