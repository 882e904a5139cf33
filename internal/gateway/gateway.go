package gateway

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/donovanmchenry/Chatify/internal/metrics"
	"github.com/donovanmchenry/Chatify/internal/models"
	"github.com/donovanmchenry/Chatify/internal/shared"
)

// Callback results reported to metrics.
const (
	ResultOK            = "ok"
	ResultStateMismatch = "state_mismatch"
	ResultInvalidToken  = "invalid_token"
)

// Authorizer is the OAuth2 surface of the identity provider.
//
// Implemented by [services.SpotifyService].
type Authorizer interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Gateway owns the login, callback and token freshness decisions.
type Gateway struct {
	auth     Authorizer
	logger   *log.Logger
	recorder *metrics.Recorder
	now      func() time.Time
	state    func() (string, error)
}

// New creates a Gateway. recorder may be nil.
func New(auth Authorizer, logger *log.Logger, recorder *metrics.Recorder) *Gateway {
	return &Gateway{
		auth:     auth,
		logger:   shared.WithLogger(logger, "component", "gateway"),
		recorder: recorder,
		now:      time.Now,
		state:    shared.GenerateState,
	}
}

// InitiateLogin stores a fresh state nonce on the session and returns the provider's authorization URL.
//
// A second call before the callback replaces the pending nonce.
func (g *Gateway) InitiateLogin(session *models.Session) (string, error) {
	state, err := g.state()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	session.OAuthState = state
	g.recorder.RecordLogin()
	g.logger.Debug("login initiated", "session", session.ID)

	return g.auth.AuthURL(state), nil
}

// HandleCallback validates state and exchanges code for credentials.
//
// The pending nonce is consumed by every callback, matching or not.
func (g *Gateway) HandleCallback(ctx context.Context, session *models.Session, code, state string) error {
	pending := session.OAuthState
	session.OAuthState = ""

	if state == "" || pending == "" || subtle.ConstantTimeCompare([]byte(state), []byte(pending)) != 1 {
		g.recorder.RecordCallback(ResultStateMismatch)
		g.logger.Warn("oauth state mismatch", "session", session.ID, "pending", pending != "")
		return shared.ErrStateMismatch
	}

	if code == "" {
		g.recorder.RecordCallback(ResultInvalidToken)
		g.logger.Warn("callback without authorization code", "session", session.ID)
		return fmt.Errorf("%w: no authorization code", shared.ErrTokenExchangeFailed)
	}

	token, err := g.auth.Exchange(ctx, code)
	if err != nil {
		g.recorder.RecordCallback(ResultInvalidToken)
		g.logger.Error("token exchange failed", "session", session.ID, "err", describe(err))
		return fmt.Errorf("%w: %v", shared.ErrTokenExchangeFailed, err)
	}

	session.Credentials = &models.Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    g.expiry(token),
	}

	g.recorder.RecordCallback(ResultOK)
	g.logger.Info("session authenticated", "session", session.ID, "expires_at", session.Credentials.ExpiresAt)
	return nil
}

// EnsureAuthenticated fails with [shared.ErrUnauthenticated] for anonymous sessions and refreshes stale tokens.
func (g *Gateway) EnsureAuthenticated(ctx context.Context, session *models.Session) error {
	if !session.Authenticated() {
		return shared.ErrUnauthenticated
	}
	return g.RefreshIfExpired(ctx, session)
}

// RefreshIfExpired performs one refresh when the access token is past its expiry.
//
// The stored refresh token is replaced only when the provider rotates it. Failures are terminal for the request.
func (g *Gateway) RefreshIfExpired(ctx context.Context, session *models.Session) error {
	creds := session.Credentials
	if creds == nil {
		return shared.ErrUnauthenticated
	}
	if !creds.Expired(g.now()) {
		return nil
	}

	if creds.RefreshToken == "" {
		g.recorder.RecordRefresh(metrics.OutcomeError)
		g.logger.Warn("access token expired without refresh token", "session", session.ID)
		return fmt.Errorf("%w: %w", shared.ErrRefreshFailed, shared.ErrNoRefreshToken)
	}

	token, err := g.auth.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		g.recorder.RecordRefresh(metrics.OutcomeError)
		g.logger.Error("token refresh failed", "session", session.ID, "err", describe(err))
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	creds.AccessToken = token.AccessToken
	creds.ExpiresAt = g.expiry(token)
	if token.RefreshToken != "" && token.RefreshToken != creds.RefreshToken {
		creds.RefreshToken = token.RefreshToken
		g.logger.Debug("refresh token rotated", "session", session.ID)
	}

	g.recorder.RecordRefresh(metrics.OutcomeOK)
	return nil
}

// expiry prefers the lifetime reported in expires_in, measured from the gateway clock.
func (g *Gateway) expiry(token *oauth2.Token) time.Time {
	if token.ExpiresIn > 0 {
		return g.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}
	return token.Expiry
}

// describe includes the provider's error body when the token endpoint rejected the request.
func describe(err error) string {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Sprintf("%s: %s", rerr.Error(), string(rerr.Body))
	}
	return err.Error()
}
