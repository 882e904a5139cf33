// Package relay keeps the per-session conversation and answers chat turns.
//
// Every turn is classified with [ClassifyIntent]. Music recommendation requests are answered by the
// [Recommender] from the user's Spotify listening history without contacting the completion provider;
// everything else sends the whole conversation to a [services.Completer].
//
// The relay assumes the caller has already passed the gateway's freshness guard and mutates the
// [models.Session] in place. Persisting the session is the caller's job.
package relay
