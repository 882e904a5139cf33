package server

import (
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/donovanmchenry/Chatify/internal/metrics"
	"github.com/donovanmchenry/Chatify/internal/shared"
)

// loginBurst is how many login or callback requests a client may make back to back.
const loginBurst = 5

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Config   shared.ServerConfig
	Sessions *SessionManager
	OAuth    Handler
	Chat     Handler
	Recorder *metrics.Recorder
	Logger   *log.Logger
}

// NewRouter builds the application router.
func NewRouter(deps Deps) http.Handler {
	logger := shared.WithLogger(deps.Logger, "component", "http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger, deps.Recorder))
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(deps.Config.AllowedOrigins))

	r.Get("/health", Health)
	r.Method(http.MethodGet, "/metrics", deps.Recorder.Handler())

	r.Group(func(r chi.Router) {
		r.Use(deps.Sessions.Middleware)
		deps.OAuth.Routes(r)
		deps.Chat.Routes(r)
	})

	if dir := deps.Config.StaticDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			r.Handle("/*", http.FileServer(http.Dir(dir)))
		} else {
			logger.Warn("static directory not found, frontend disabled", "dir", dir)
		}
	}

	return r
}

// NewLoginLimiter builds the per-client limiter for /login and /callback from the configured rate.
func NewLoginLimiter(cfg shared.ServerConfig, recorder *metrics.Recorder) *RateLimiter {
	return NewRateLimiter(cfg.LoginRateLimit, loginBurst, recorder)
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// corsMiddleware allows credentialed requests from the configured frontend origins.
func corsMiddleware(allowedOrigins []string) func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
