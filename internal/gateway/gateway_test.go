package gateway

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/donovanmchenry/Chatify/internal/models"
	"github.com/donovanmchenry/Chatify/internal/services"
	"github.com/donovanmchenry/Chatify/internal/shared"
	tu "github.com/donovanmchenry/Chatify/internal/testing"
)

// stubAuthorizer answers token requests from fields and counts calls.
type stubAuthorizer struct {
	token      *oauth2.Token
	err        error
	exchanges  []string
	refreshes  []string
	lastStates []string
}

func (s *stubAuthorizer) AuthURL(state string) string {
	s.lastStates = append(s.lastStates, state)
	return "https://accounts.example.com/authorize?state=" + state
}

func (s *stubAuthorizer) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	s.exchanges = append(s.exchanges, code)
	return s.token, s.err
}

func (s *stubAuthorizer) Refresh(_ context.Context, refreshToken string) (*oauth2.Token, error) {
	s.refreshes = append(s.refreshes, refreshToken)
	return s.token, s.err
}

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestGateway(auth Authorizer) (*Gateway, *bytes.Buffer) {
	var buf bytes.Buffer
	g := New(auth, shared.NewLogger(&buf), nil)
	g.now = func() time.Time { return epoch }
	return g, &buf
}

func TestInitiateLogin(t *testing.T) {
	t.Run("stores state and returns authorize URL", func(t *testing.T) {
		auth := &stubAuthorizer{}
		g, _ := newTestGateway(auth)
		sess := models.NewSession("sid")

		redirect, err := g.InitiateLogin(sess)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(sess.OAuthState) != 32 {
			t.Errorf("expected 32 hex chars of state, got %q", sess.OAuthState)
		}
		if !strings.HasSuffix(redirect, "state="+sess.OAuthState) {
			t.Errorf("redirect should carry the stored state, got %s", redirect)
		}
	})

	t.Run("second login replaces pending state", func(t *testing.T) {
		g, _ := newTestGateway(&stubAuthorizer{})
		sess := models.NewSession("sid")

		if _, err := g.InitiateLogin(sess); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		first := sess.OAuthState

		if _, err := g.InitiateLogin(sess); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sess.OAuthState == first {
			t.Error("expected a fresh state on each login")
		}
	})

	t.Run("state generation failure", func(t *testing.T) {
		g, _ := newTestGateway(&stubAuthorizer{})
		g.state = func() (string, error) { return "", errors.New("entropy exhausted") }
		sess := models.NewSession("sid")

		if _, err := g.InitiateLogin(sess); err == nil {
			t.Error("expected error")
		}
		if sess.OAuthState != "" {
			t.Error("state should not be set on failure")
		}
	})

	t.Run("spotify authorize URL", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		spotify, err := services.NewSpotifyService(fake.Config(), fake.Server.Client())
		if err != nil {
			t.Fatalf("failed to create spotify service: %v", err)
		}

		g, _ := newTestGateway(spotify)
		sess := models.NewSession("sid")

		redirect, err := g.InitiateLogin(sess)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		u, err := url.Parse(redirect)
		if err != nil {
			t.Fatalf("invalid redirect: %v", err)
		}
		q := u.Query()
		if q.Get("state") != sess.OAuthState || q.Get("response_type") != "code" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("scope") != "user-read-private user-read-email user-top-read" {
			t.Errorf("unexpected scope %q", q.Get("scope"))
		}
	})
}

func TestHandleCallback(t *testing.T) {
	ctx := context.Background()

	pendingSession := func() *models.Session {
		sess := models.NewSession("sid")
		sess.OAuthState = "state-a"
		return sess
	}

	t.Run("stores credentials", func(t *testing.T) {
		auth := &stubAuthorizer{token: &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 3600}}
		g, _ := newTestGateway(auth)
		sess := pendingSession()

		if err := g.HandleCallback(ctx, sess, "code-1", "state-a"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if sess.OAuthState != "" {
			t.Error("state should be cleared after the callback")
		}
		if !sess.Authenticated() || sess.Credentials.RefreshToken != "refresh" {
			t.Errorf("unexpected credentials %+v", sess.Credentials)
		}
		if want := epoch.UnixMilli() + 3600*1000; sess.Credentials.ExpiresAtMillis() != want {
			t.Errorf("expected expiry %d, got %d", want, sess.Credentials.ExpiresAtMillis())
		}
		if len(auth.exchanges) != 1 || auth.exchanges[0] != "code-1" {
			t.Errorf("expected one exchange of code-1, got %v", auth.exchanges)
		}
	})

	t.Run("state mismatch", func(t *testing.T) {
		tc := []struct {
			name    string
			pending string
			state   string
		}{
			{name: "different state", pending: "state-a", state: "state-b"},
			{name: "empty state", pending: "state-a", state: ""},
			{name: "no pending login", pending: "", state: "state-a"},
			{name: "both empty", pending: "", state: ""},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				auth := &stubAuthorizer{token: &oauth2.Token{AccessToken: "access"}}
				g, _ := newTestGateway(auth)
				sess := models.NewSession("sid")
				sess.OAuthState = tt.pending

				err := g.HandleCallback(ctx, sess, "code-1", tt.state)
				if !errors.Is(err, shared.ErrStateMismatch) {
					t.Errorf("expected ErrStateMismatch, got %v", err)
				}
				if len(auth.exchanges) != 0 {
					t.Error("no code should be exchanged on mismatch")
				}
				if sess.Authenticated() {
					t.Error("session should stay anonymous")
				}
			})
		}
	})

	t.Run("provider denied access", func(t *testing.T) {
		auth := &stubAuthorizer{}
		g, _ := newTestGateway(auth)
		sess := pendingSession()

		err := g.HandleCallback(ctx, sess, "", "state-a")
		if !errors.Is(err, shared.ErrTokenExchangeFailed) {
			t.Errorf("expected ErrTokenExchangeFailed, got %v", err)
		}
		if len(auth.exchanges) != 0 {
			t.Error("an empty code should not be exchanged")
		}
	})

	t.Run("exchange failure is logged not returned", func(t *testing.T) {
		auth := &stubAuthorizer{err: &oauth2.RetrieveError{
			Response: &http.Response{Status: "400 Bad Request", StatusCode: http.StatusBadRequest},
			Body:     []byte(`{"error":"invalid_grant"}`),
		}}
		g, logs := newTestGateway(auth)
		sess := pendingSession()

		err := g.HandleCallback(ctx, sess, "code-1", "state-a")
		if !errors.Is(err, shared.ErrTokenExchangeFailed) {
			t.Errorf("expected ErrTokenExchangeFailed, got %v", err)
		}
		if sess.Authenticated() {
			t.Error("session should stay anonymous")
		}
		if !strings.Contains(logs.String(), "invalid_grant") {
			t.Errorf("expected provider body in logs, got %s", logs.String())
		}
	})

	t.Run("spotify exchange", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		spotify, err := services.NewSpotifyService(fake.Config(), fake.Server.Client())
		if err != nil {
			t.Fatalf("failed to create spotify service: %v", err)
		}

		var buf bytes.Buffer
		g := New(spotify, shared.NewLogger(&buf), nil)
		sess := pendingSession()

		before := time.Now()
		if err := g.HandleCallback(ctx, sess, "code-1", "state-a"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		expiresAt := sess.Credentials.ExpiresAtMillis()
		low := before.UnixMilli() + 3600*1000
		high := time.Now().UnixMilli() + 3600*1000
		if expiresAt < low || expiresAt > high {
			t.Errorf("expected expiry within [%d, %d], got %d", low, high, expiresAt)
		}
		if sess.Credentials.AccessToken != "access-1" || sess.Credentials.RefreshToken != "refresh-1" {
			t.Errorf("unexpected credentials %+v", sess.Credentials)
		}
	})
}

func TestEnsureAuthenticated(t *testing.T) {
	ctx := context.Background()

	t.Run("anonymous session", func(t *testing.T) {
		auth := &stubAuthorizer{}
		g, _ := newTestGateway(auth)

		err := g.EnsureAuthenticated(ctx, models.NewSession("sid"))
		if !errors.Is(err, shared.ErrUnauthenticated) {
			t.Errorf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("fresh token is left alone", func(t *testing.T) {
		auth := &stubAuthorizer{}
		g, _ := newTestGateway(auth)
		sess := models.NewSession("sid")
		sess.Credentials = &models.Credentials{AccessToken: "access", RefreshToken: "refresh", ExpiresAt: epoch.Add(time.Minute)}

		if err := g.EnsureAuthenticated(ctx, sess); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(auth.refreshes) != 0 {
			t.Error("a fresh token should not be refreshed")
		}
	})
}

func TestRefreshIfExpired(t *testing.T) {
	ctx := context.Background()

	expiredSession := func(refreshToken string) *models.Session {
		sess := models.NewSession("sid")
		sess.Credentials = &models.Credentials{AccessToken: "old", RefreshToken: refreshToken, ExpiresAt: epoch.Add(-time.Second)}
		return sess
	}

	t.Run("keeps refresh token when not rotated", func(t *testing.T) {
		auth := &stubAuthorizer{token: &oauth2.Token{AccessToken: "new", ExpiresIn: 3600}}
		g, _ := newTestGateway(auth)
		sess := expiredSession("refresh-1")

		if err := g.RefreshIfExpired(ctx, sess); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if sess.Credentials.AccessToken != "new" {
			t.Errorf("expected new access token, got %s", sess.Credentials.AccessToken)
		}
		if sess.Credentials.RefreshToken != "refresh-1" {
			t.Errorf("expected refresh token to be kept, got %s", sess.Credentials.RefreshToken)
		}
		if !sess.Credentials.ExpiresAt.Equal(epoch.Add(time.Hour)) {
			t.Errorf("expected expiry one hour out, got %v", sess.Credentials.ExpiresAt)
		}
		if len(auth.refreshes) != 1 || auth.refreshes[0] != "refresh-1" {
			t.Errorf("expected one refresh with refresh-1, got %v", auth.refreshes)
		}
	})

	t.Run("stores rotated refresh token", func(t *testing.T) {
		auth := &stubAuthorizer{token: &oauth2.Token{AccessToken: "new", RefreshToken: "refresh-2", ExpiresIn: 3600}}
		g, _ := newTestGateway(auth)
		sess := expiredSession("refresh-1")

		if err := g.RefreshIfExpired(ctx, sess); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sess.Credentials.RefreshToken != "refresh-2" {
			t.Errorf("expected rotated refresh token, got %s", sess.Credentials.RefreshToken)
		}
	})

	t.Run("no refresh token", func(t *testing.T) {
		auth := &stubAuthorizer{}
		g, _ := newTestGateway(auth)

		err := g.EnsureAuthenticated(ctx, expiredSession(""))
		if !errors.Is(err, shared.ErrRefreshFailed) || !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Errorf("expected ErrRefreshFailed wrapping ErrNoRefreshToken, got %v", err)
		}
		if len(auth.refreshes) != 0 {
			t.Error("no refresh request should be made")
		}
	})

	t.Run("refresh failure is not retried", func(t *testing.T) {
		auth := &stubAuthorizer{err: errors.New("invalid_grant")}
		g, _ := newTestGateway(auth)
		sess := expiredSession("refresh-1")

		err := g.RefreshIfExpired(ctx, sess)
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
		if len(auth.refreshes) != 1 {
			t.Errorf("expected exactly one attempt, got %d", len(auth.refreshes))
		}
		if sess.Credentials.AccessToken != "old" {
			t.Error("credentials should be untouched on failure")
		}
	})

	t.Run("zero expiry never refreshes", func(t *testing.T) {
		auth := &stubAuthorizer{}
		g, _ := newTestGateway(auth)
		sess := models.NewSession("sid")
		sess.Credentials = &models.Credentials{AccessToken: "access"}

		if err := g.RefreshIfExpired(ctx, sess); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(auth.refreshes) != 0 {
			t.Error("a token without expiry should not be refreshed")
		}
	})

	t.Run("spotify refresh", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		fake.AccessToken = "access-2"
		fake.Rotated = "refresh-2"

		spotify, err := services.NewSpotifyService(fake.Config(), fake.Server.Client())
		if err != nil {
			t.Fatalf("failed to create spotify service: %v", err)
		}

		var buf bytes.Buffer
		g := New(spotify, shared.NewLogger(&buf), nil)
		sess := models.NewSession("sid")
		sess.Credentials = &models.Credentials{AccessToken: "old", RefreshToken: "refresh-1", ExpiresAt: time.Now().Add(-time.Minute)}

		if err := g.RefreshIfExpired(ctx, sess); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sess.Credentials.AccessToken != "access-2" || sess.Credentials.RefreshToken != "refresh-2" {
			t.Errorf("unexpected credentials %+v", sess.Credentials)
		}
		if sess.Credentials.Expired(time.Now()) {
			t.Error("refreshed credentials should not be expired")
		}
	})
}
