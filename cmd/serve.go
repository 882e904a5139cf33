package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/donovanmchenry/Chatify/internal/gateway"
	"github.com/donovanmchenry/Chatify/internal/metrics"
	"github.com/donovanmchenry/Chatify/internal/models"
	"github.com/donovanmchenry/Chatify/internal/relay"
	"github.com/donovanmchenry/Chatify/internal/repositories"
	"github.com/donovanmchenry/Chatify/internal/server"
	"github.com/donovanmchenry/Chatify/internal/services"
	"github.com/donovanmchenry/Chatify/internal/shared"
)

// pruneInterval is how often the server drops expired sessions from its store.
const pruneInterval = 15 * time.Minute

type sessionStore interface {
	models.SessionStore
	Prune(ctx context.Context) (int64, error)
}

// application is the wired HTTP relay and the resources it owns.
type application struct {
	handler http.Handler
	store   sessionStore
	db      *sql.DB
	logger  *log.Logger
}

// Close releases the database, if any.
func (a *application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// pruneLoop deletes expired sessions every pruneInterval until ctx is done.
func (a *application) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.store.Prune(ctx)
			if err != nil {
				a.logger.Error("failed to prune sessions", "err", err)
				continue
			}
			if n > 0 {
				a.logger.Info("pruned expired sessions", "count", n)
			}
		}
	}
}

// newApplication wires services, gateway, relay and router from config.
func (r *Runner) newApplication(config *shared.Config, memory bool) (*application, error) {
	app := &application{logger: shared.WithLogger(r.logger, "component", "app")}

	if memory {
		app.store = repositories.NewMemorySessionStore(config.Server.SessionTTL)
	} else {
		db, err := openDatabase(config.Database)
		if err != nil {
			return nil, err
		}
		app.db = db
		app.store = repositories.NewSessionRepository(db, config.Server.SessionTTL)
	}

	spotify, err := services.NewSpotifyService(config.Credentials.Spotify, r.httpClient)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create spotify service: %w", err)
	}

	completer, err := services.NewCompleter(config, r.httpClient)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create completer: %w", err)
	}

	sessions, err := server.NewSessionManager(config.Server, app.store, r.logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}

	recorder := metrics.NewRecorder()
	gw := gateway.New(spotify, r.logger, recorder)
	recommender := relay.NewRecommender(spotify, config.Recommendations, r.logger, recorder)
	chat := relay.New(completer, recommender, r.logger, recorder)

	app.handler = server.NewRouter(server.Deps{
		Config:   config.Server,
		Sessions: sessions,
		OAuth:    server.NewOAuthHandler(gw, sessions, config.Server.FrontendURL, server.NewLoginLimiter(config.Server, recorder), r.logger),
		Chat:     server.NewChatHandler(gw, chat, spotify, config.Server.AuthMode, r.logger),
		Recorder: recorder,
		Logger:   r.logger,
	})

	r.logger.Debug("application wired", "provider", completer.Name(), "memory", memory, "auth_mode", config.Server.AuthMode)
	return app, nil
}

// Serve runs the relay until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("port") {
		config.Server.Port = int(cmd.Int("port"))
	}
	if err := config.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := r.newApplication(config, cmd.Bool("memory"))
	if err != nil {
		return err
	}
	defer app.Close()

	ln, err := net.Listen("tcp", config.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", config.Server.Addr(), err)
	}

	if cmd.Bool("open") {
		if err := r.openBrowser(config.Server.FrontendURL); err != nil {
			r.logger.Warn("could not open browser", "url", config.Server.FrontendURL, "err", err)
		}
	}

	go app.pruneLoop(ctx)

	return server.New(config.Server, app.handler, r.logger).Serve(ctx, ln)
}
