package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/sessions"

	"github.com/donovanmchenry/Chatify/internal/models"
	"github.com/donovanmchenry/Chatify/internal/shared"
)

const (
	// SessionCookieName names the signed cookie carrying the session id.
	SessionCookieName = "chatify_session"
	sessionIDKey      = "sid"
)

type sessionContextKey struct{}

// SessionFrom returns the session attached by [SessionManager.Middleware], or nil outside of it.
func SessionFrom(ctx context.Context) *models.Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*models.Session)
	return sess
}

// WithSession attaches sess to ctx.
func WithSession(ctx context.Context, sess *models.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionManager binds requests to server-side sessions through a signed id cookie.
type SessionManager struct {
	cookies *sessions.CookieStore
	store   models.SessionStore
	logger  *log.Logger
}

// NewSessionManager creates a SessionManager.
//
// Cross-site deployments get Secure, SameSite=None cookies; otherwise cookies are SameSite=Lax.
func NewSessionManager(cfg shared.ServerConfig, store models.SessionStore, logger *log.Logger) (*SessionManager, error) {
	if len(cfg.SessionSecret) < shared.MinSessionSecretLength {
		return nil, shared.ErrInvalidConfig
	}

	cookies := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	cookies.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.CrossSite,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.CrossSite {
		cookies.Options.SameSite = http.SameSiteNoneMode
	}
	// MaxAge also bounds the codec's timestamp check, which otherwise stays at 30 days.
	cookies.MaxAge(int(cfg.SessionTTL / time.Second))

	return &SessionManager{
		cookies: cookies,
		store:   store,
		logger:  shared.WithLogger(logger, "component", "sessions"),
	}, nil
}

// Middleware loads the caller's session, creating one when the cookie is missing, invalid or expired.
//
// The session is saved to the store once, before the response status is written.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A cookie that fails verification yields a fresh cookie session and an error; both are handled as a new visitor.
		cookie, _ := m.cookies.Get(r, SessionCookieName)

		sess, err := m.load(r.Context(), cookie)
		if err != nil {
			m.logger.Error("failed to load session", "err", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		cookie.Values[sessionIDKey] = sess.ID
		if err := cookie.Save(r, w); err != nil {
			m.logger.Error("failed to write session cookie", "err", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		sw := &sessionWriter{ResponseWriter: w, logger: m.logger, save: func() error {
			return m.store.Put(context.WithoutCancel(r.Context()), sess.ID, sess)
		}}

		next.ServeHTTP(sw, r.WithContext(WithSession(r.Context(), sess)))
		if !sw.written {
			sw.WriteHeader(http.StatusOK)
		}
	})
}

func (m *SessionManager) load(ctx context.Context, cookie *sessions.Session) (*models.Session, error) {
	if id, ok := cookie.Values[sessionIDKey].(string); ok && id != "" {
		sess, err := m.store.Get(ctx, id)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, shared.ErrSessionNotFound) {
			return nil, err
		}
	}

	// Unknown ids are never reused. Known ids are rotated at login by Regenerate.
	sess := models.NewSession(shared.GenerateID())
	m.logger.Debug("session created", "session", sess.ID)
	return sess, nil
}

// Regenerate moves sess to a fresh id, drops the old record and reissues the cookie.
//
// The callback calls it once a session becomes authenticated.
func (m *SessionManager) Regenerate(w http.ResponseWriter, r *http.Request, sess *models.Session) error {
	previous := sess.ID
	if err := m.store.Delete(r.Context(), previous); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", previous, err)
	}

	sess.ID = shared.GenerateID()

	cookie, _ := m.cookies.New(r, SessionCookieName)
	cookie.Values[sessionIDKey] = sess.ID
	w.Header().Del("Set-Cookie")
	if err := cookie.Save(r, w); err != nil {
		return fmt.Errorf("failed to write session cookie: %w", err)
	}

	m.logger.Debug("session id rotated", "previous", previous, "session", sess.ID)
	return nil
}

// sessionWriter saves the session before the first header or body write reaches the client.
type sessionWriter struct {
	http.ResponseWriter
	logger  *log.Logger
	save    func() error
	once    sync.Once
	failed  bool
	written bool
}

func (w *sessionWriter) persist() {
	w.once.Do(func() {
		if err := w.save(); err != nil {
			w.failed = true
			w.logger.Error("failed to save session", "err", err)
		}
	})
}

func (w *sessionWriter) WriteHeader(status int) {
	if w.written {
		return
	}
	w.written = true
	w.persist()
	if w.failed {
		w.Header().Del("Location")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.ResponseWriter.WriteHeader(http.StatusInternalServerError)
		w.ResponseWriter.Write([]byte("Internal Server Error\n"))
		return
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	if w.failed {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
