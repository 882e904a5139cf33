package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/donovanmchenry/Chatify/internal/gateway"
	"github.com/donovanmchenry/Chatify/internal/models"
	"github.com/donovanmchenry/Chatify/internal/shared"
)

// SessionRegenerator reissues a session under a new id. Implemented by [SessionManager].
type SessionRegenerator interface {
	Regenerate(w http.ResponseWriter, r *http.Request, sess *models.Session) error
}

// OAuthHandler serves the login redirect and the provider callback.
type OAuthHandler struct {
	gateway     *gateway.Gateway
	sessions    SessionRegenerator
	frontendURL string
	limiter     *RateLimiter
	logger      *log.Logger
}

// NewOAuthHandler creates an OAuthHandler that returns users to frontendURL. limiter may be nil.
func NewOAuthHandler(gw *gateway.Gateway, sessions SessionRegenerator, frontendURL string, limiter *RateLimiter, logger *log.Logger) *OAuthHandler {
	return &OAuthHandler{
		gateway:     gw,
		sessions:    sessions,
		frontendURL: frontendURL,
		limiter:     limiter,
		logger:      shared.WithLogger(logger, "component", "oauth"),
	}
}

// Routes registers GET /login and GET /callback.
func (h *OAuthHandler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(h.limiter.Middleware)
		}
		r.Get("/login", h.Login)
		r.Get("/callback", h.Callback)
	})
}

// Login starts the authorization-code flow and redirects to the provider.
func (h *OAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())

	redirect, err := h.gateway.InitiateLogin(sess)
	if err != nil {
		h.logger.Error("failed to initiate login", "err", err)
		writeText(w, http.StatusInternalServerError, "Failed to start login")
		return
	}

	http.Redirect(w, r, redirect, http.StatusFound)
}

// Callback validates the provider response and returns the user to the frontend.
//
// Failures are reported in the frontend URL fragment as error=state_mismatch or error=invalid_token.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	query := r.URL.Query()

	if denied := query.Get("error"); denied != "" {
		h.logger.Warn("provider returned an error", "error", denied, "description", query.Get("error_description"))
	}

	err := h.gateway.HandleCallback(r.Context(), sess, query.Get("code"), query.Get("state"))
	if err == nil {
		err = h.sessions.Regenerate(w, r, sess)
		if err != nil {
			h.logger.Error("failed to rotate session id", "err", err)
			sess.Credentials = nil
		}
	}

	switch {
	case err == nil:
		http.Redirect(w, r, h.frontendURL, http.StatusFound)
	case errors.Is(err, shared.ErrStateMismatch):
		http.Redirect(w, r, h.frontendError(gateway.ResultStateMismatch), http.StatusFound)
	default:
		http.Redirect(w, r, h.frontendError(gateway.ResultInvalidToken), http.StatusFound)
	}
}

func (h *OAuthHandler) frontendError(code string) string {
	return h.frontendURL + "#" + url.Values{"error": {code}}.Encode()
}
