package testing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/donovanmchenry/Chatify/internal/shared"
)

const (
	FakeClientID     = "test_client_id"
	FakeClientSecret = "test_client_secret"
	FakeRedirectURI  = "http://localhost:3000/callback"
)

// FakeItem is an artist as served by [FakeSpotify]
type FakeItem struct {
	ID   string
	Name string
}

// FakeTrack is a track as served by [FakeSpotify]
type FakeTrack struct {
	ID      string
	Name    string
	Artists []string
}

// FakeSpotify is an httptest server standing in for the Spotify accounts service and Web API.
//
// Fields may be changed between requests; the server reads them under its lock.
type FakeSpotify struct {
	Server *httptest.Server

	mu sync.Mutex

	// Token endpoint
	AccessToken  string
	RefreshToken string // returned by the authorization_code grant
	Rotated      string // returned by the refresh_token grant when non-empty
	ExpiresIn    int
	TokenStatus  int // non-zero forces an error status from the token endpoint

	// Web API
	Profile     map[string]any
	Artists     []FakeItem
	Tracks      []FakeTrack
	Recommended []FakeTrack
	Status      map[string]int // forced status by request path

	Grants    []string
	BasicAuth bool
	Calls     map[string]int
	Queries   map[string]url.Values
	Bearers   []string
}

// NewFakeSpotify starts a fake Spotify server that is closed when the test ends.
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()

	f := &FakeSpotify{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresIn:    3600,
		Profile:      map[string]any{"id": "user-1", "display_name": "Test User", "email": "test@example.com"},
		Status:       map[string]int{},
		Calls:        map[string]int{},
		Queries:      map[string]url.Values{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", f.handleToken)
	mux.HandleFunc("/v1/me", f.handleAPI(func() any { return f.Profile }))
	mux.HandleFunc("/v1/me/top/artists", f.handleAPI(func() any { return map[string]any{"items": artistsJSON(f.Artists)} }))
	mux.HandleFunc("/v1/me/top/tracks", f.handleAPI(func() any { return map[string]any{"items": tracksJSON(f.Tracks)} }))
	mux.HandleFunc("/v1/recommendations", f.handleAPI(func() any { return map[string]any{"tracks": tracksJSON(f.Recommended)} }))

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// Config returns Spotify settings pointing every endpoint at the fake server.
func (f *FakeSpotify) Config() shared.SpotifyConfig {
	return shared.SpotifyConfig{
		ClientID:     FakeClientID,
		ClientSecret: FakeClientSecret,
		RedirectURI:  FakeRedirectURI,
		AuthURL:      f.Server.URL + "/authorize",
		TokenURL:     f.Server.URL + "/api/token",
		APIBaseURL:   f.Server.URL + "/v1",
	}
}

// CallCount returns how many requests reached path (e.g. "/v1/recommendations")
func (f *FakeSpotify) CallCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[path]
}

// Query returns the query of the most recent request to path
func (f *FakeSpotify) Query(path string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Queries[path]
}

// Set runs fn under the server lock so fields can be changed while requests are in flight.
func (f *FakeSpotify) Set(fn func(f *FakeSpotify)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *FakeSpotify) handleToken(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls[r.URL.Path]++
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, secret, ok := r.BasicAuth()
	f.BasicAuth = ok && id == FakeClientID && secret == FakeClientSecret

	grant := r.PostForm.Get("grant_type")
	f.Grants = append(f.Grants, grant)

	if f.TokenStatus != 0 {
		writeJSON(w, f.TokenStatus, map[string]any{"error": "invalid_grant", "error_description": "Invalid authorization code"})
		return
	}

	body := map[string]any{
		"access_token": f.AccessToken,
		"token_type":   "Bearer",
		"scope":        r.PostForm.Get("scope"),
		"expires_in":   f.ExpiresIn,
	}
	switch grant {
	case "authorization_code":
		if r.PostForm.Get("code") == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
			return
		}
		body["refresh_token"] = f.RefreshToken
	case "refresh_token":
		if f.Rotated != "" {
			body["refresh_token"] = f.Rotated
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unsupported_grant_type"})
		return
	}

	writeJSON(w, http.StatusOK, body)
}

func (f *FakeSpotify) handleAPI(body func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		f.Calls[r.URL.Path]++
		f.Queries[r.URL.Path] = r.URL.Query()
		f.Bearers = append(f.Bearers, r.Header.Get("Authorization"))

		if status, ok := f.Status[r.URL.Path]; ok {
			writeJSON(w, status, map[string]any{"error": map[string]any{"status": status, "message": "forced failure"}})
			return
		}

		writeJSON(w, http.StatusOK, body())
	}
}

func artistsJSON(items []FakeItem) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, a := range items {
		out = append(out, map[string]any{"id": a.ID, "name": a.Name})
	}
	return out
}

func tracksJSON(tracks []FakeTrack) []map[string]any {
	out := make([]map[string]any, 0, len(tracks))
	for _, t := range tracks {
		artists := make([]map[string]any, 0, len(t.Artists))
		for _, name := range t.Artists {
			artists = append(artists, map[string]any{"name": name})
		}
		out = append(out, map[string]any{"id": t.ID, "name": t.Name, "artists": artists})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
