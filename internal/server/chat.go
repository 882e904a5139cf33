package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/donovanmchenry/Chatify/internal/gateway"
	"github.com/donovanmchenry/Chatify/internal/relay"
	"github.com/donovanmchenry/Chatify/internal/shared"
)

// Client-facing messages. Upstream detail is only logged.
const (
	MsgChatFailed      = "An error occurred while processing your request."
	MsgResetDone       = "Conversation reset."
	MsgProfileFailed   = "Error fetching user profile"
	MsgUnauthenticated = "User not authenticated with Spotify"
	MsgRefreshFailed   = "Failed to refresh Spotify access token"
	MsgMessageRequired = "Message is required"
	MsgInvalidJSON     = "Request body must be JSON with a message field"
)

const maxChatRequestBytes = 64 << 10

// ProfileFetcher returns the raw profile of the user owning accessToken.
//
// Implemented by [services.SpotifyService].
type ProfileFetcher interface {
	UserProfile(ctx context.Context, accessToken string) (json.RawMessage, error)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type profileResponse struct {
	User json.RawMessage `json:"user"`
}

// ChatHandler serves the conversation and profile endpoints.
type ChatHandler struct {
	gateway  *gateway.Gateway
	relay    *relay.Relay
	profiles ProfileFetcher
	authMode string
	logger   *log.Logger
}

// NewChatHandler creates a ChatHandler. authMode selects the unauthenticated response.
func NewChatHandler(gw *gateway.Gateway, rl *relay.Relay, profiles ProfileFetcher, authMode string, logger *log.Logger) *ChatHandler {
	return &ChatHandler{
		gateway:  gw,
		relay:    rl,
		profiles: profiles,
		authMode: authMode,
		logger:   shared.WithLogger(logger, "component", "chat"),
	}
}

// Routes registers the /api endpoints.
func (h *ChatHandler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/reset", h.Reset)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)
			r.Post("/chat", h.Chat)
			r.Get("/user-profile", h.UserProfile)
		})
	})
}

// RequireAuth lets a request through only when the session holds fresh credentials, refreshing them if needed.
func (h *ChatHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFrom(r.Context())

		err := h.gateway.EnsureAuthenticated(r.Context(), sess)
		if err == nil {
			next.ServeHTTP(w, r)
			return
		}

		var msg string
		switch {
		case errors.Is(err, shared.ErrUnauthenticated):
			msg = MsgUnauthenticated
		case errors.Is(err, shared.ErrRefreshFailed):
			msg = MsgRefreshFailed
		default:
			h.logger.Error("authentication check failed", "err", err)
			writeText(w, http.StatusInternalServerError, MsgChatFailed)
			return
		}

		if h.authMode == shared.AuthModeWeb {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: msg})
	})
}

// Chat answers one conversation turn.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: MsgInvalidJSON})
		return
	}

	reply, err := h.relay.SendMessage(r.Context(), sess, req.Message)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
	case errors.Is(err, shared.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: MsgMessageRequired})
	default:
		h.logger.Error("chat turn failed", "session", sess.ID, "err", err)
		writeText(w, http.StatusInternalServerError, MsgChatFailed)
	}
}

// Reset clears the conversation. It never fails, with or without credentials.
func (h *ChatHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.relay.Reset(SessionFrom(r.Context()))
	writeText(w, http.StatusOK, MsgResetDone)
}

// UserProfile returns the provider's profile of the signed-in user.
func (h *ChatHandler) UserProfile(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())

	profile, err := h.profiles.UserProfile(r.Context(), sess.Credentials.AccessToken)
	if err != nil {
		h.logger.Error("failed to fetch user profile", "session", sess.ID, "err", err)
		writeText(w, http.StatusInternalServerError, MsgProfileFailed)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{User: profile})
}
