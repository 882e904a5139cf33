// Spotify Web API and OAuth2 client
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"

	"github.com/donovanmchenry/Chatify/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// DefaultScopes are requested on every login.
var DefaultScopes = []string{"user-read-private", "user-read-email", "user-top-read"}

// Time ranges accepted by the top items endpoints.
const (
	TimeRangeShort  = "short_term"
	TimeRangeMedium = "medium_term"
	TimeRangeLong   = "long_term"
)

// MaxSeeds is the number of seed identifiers Spotify accepts per recommendations request.
const MaxSeeds = 5

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
}

// ArtistNames returns the names of the track's artists in credit order.
func (t SpotifyTrack) ArtistNames() []string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return names
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Genres []string       `json:"genres"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ReleaseDate string         `json:"release_date"`
	Images      []SpotifyImage `json:"images"`
	URI         string         `json:"uri"`
}

type topArtistsPage struct {
	Items []SpotifyArtist `json:"items"`
	Total int             `json:"total"`
}

type topTracksPage struct {
	Items []SpotifyTrack `json:"items"`
	Total int            `json:"total"`
}

type recommendationsResponse struct {
	Tracks []SpotifyTrack `json:"tracks"`
}

// SpotifyService drives the OAuth2 authorization-code flow and calls the Spotify Web API on behalf of a session.
//
// It holds no user tokens: the caller passes the access token of the session being served.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	baseURL    string
}

// NewSpotifyService creates a new Spotify service from the configured client credentials.
//
// A nil client falls back to [http.DefaultClient]. Empty URLs fall back to the public Spotify endpoints.
func NewSpotifyService(cfg shared.SpotifyConfig, client *http.Client) (*SpotifyService, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: spotify client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_secret", shared.ErrMissingCredentials)
	}
	if cfg.RedirectURI == "" {
		return nil, fmt.Errorf("%w: spotify redirect_uri", shared.ErrMissingConfig)
	}
	if client == nil {
		client = http.DefaultClient
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   orDefault(cfg.AuthURL, spotifyAuthURL),
			TokenURL:  orDefault(cfg.TokenURL, spotifyTokenURL),
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: client,
		baseURL:    strings.TrimRight(orDefault(cfg.APIBaseURL, spotifyBaseURL), "/"),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the authorization URL carrying response_type, client_id, redirect_uri, scope and state.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens at the token endpoint.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(s.withClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

// Refresh performs a single refresh_token grant.
//
// When the provider does not rotate the refresh token, the returned token carries refreshToken unchanged.
func (s *SpotifyService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	token, err := s.config.TokenSource(s.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return token, nil
}

// withClient makes the oauth2 package use the service's HTTP client for token requests.
func (s *SpotifyService) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// doRequest performs a bearer-authenticated GET against the Web API and decodes the JSON body into result.
func (s *SpotifyService) doRequest(ctx context.Context, accessToken, endpoint string, query url.Values, result any) error {
	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s: status %d: %s", shared.ErrAPIRequest, endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// UserProfile retrieves the current user's profile exactly as Spotify returns it.
func (s *SpotifyService) UserProfile(ctx context.Context, accessToken string) (json.RawMessage, error) {
	var profile json.RawMessage
	if err := s.doRequest(ctx, accessToken, "/me", nil, &profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// TopArtists retrieves the user's top artists for the given time range.
func (s *SpotifyService) TopArtists(ctx context.Context, accessToken, timeRange string, limit int) ([]SpotifyArtist, error) {
	var page topArtistsPage
	if err := s.doRequest(ctx, accessToken, "/me/top/artists", topQuery(timeRange, limit), &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// TopTracks retrieves the user's top tracks for the given time range.
func (s *SpotifyService) TopTracks(ctx context.Context, accessToken, timeRange string, limit int) ([]SpotifyTrack, error) {
	var page topTracksPage
	if err := s.doRequest(ctx, accessToken, "/me/top/tracks", topQuery(timeRange, limit), &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Recommendations retrieves tracks seeded by artist and track IDs.
//
// At most [MaxSeeds] seeds are sent, artists first. Limit is clamped to 1..100.
func (s *SpotifyService) Recommendations(ctx context.Context, accessToken string, seedArtists, seedTracks []string, limit int) ([]SpotifyTrack, error) {
	artists, tracks := capSeeds(seedArtists, seedTracks, MaxSeeds)
	if len(artists)+len(tracks) == 0 {
		return nil, fmt.Errorf("%w: no recommendation seeds", shared.ErrInvalidArgument)
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(clamp(limit, 1, 100)))
	if len(artists) > 0 {
		query.Set("seed_artists", strings.Join(artists, ","))
	}
	if len(tracks) > 0 {
		query.Set("seed_tracks", strings.Join(tracks, ","))
	}

	var resp recommendationsResponse
	if err := s.doRequest(ctx, accessToken, "/recommendations", query, &resp); err != nil {
		return nil, err
	}
	return resp.Tracks, nil
}

// capSeeds keeps at most max identifiers across both lists, filling from artists first.
func capSeeds(artists, tracks []string, max int) ([]string, []string) {
	if len(artists) > max {
		artists = artists[:max]
	}
	remaining := max - len(artists)
	if len(tracks) > remaining {
		tracks = tracks[:remaining]
	}
	return artists, tracks
}

func topQuery(timeRange string, limit int) url.Values {
	if timeRange == "" {
		timeRange = TimeRangeMedium
	}
	query := url.Values{}
	query.Set("time_range", timeRange)
	query.Set("limit", strconv.Itoa(clamp(limit, 1, 50)))
	return query
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
