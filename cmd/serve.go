package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahumphreys/spindle/internal/auth"
	"github.com/ahumphreys/spindle/internal/repositories"
	"github.com/ahumphreys/spindle/internal/server"
	"github.com/ahumphreys/spindle/internal/services"
	"github.com/ahumphreys/spindle/internal/shared"
	"github.com/ahumphreys/spindle/internal/tasks"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

// Serve wires the full service and runs the HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	spotify := config.Credentials.Spotify
	if spotify.ClientID == "" || spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret must be configured", shared.ErrMissingCredentials)
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	users := repositories.NewUserRepository(db)
	sessions := repositories.NewSessionRepository(db)
	visibility := repositories.NewVisibilityRepository(db)
	targets := repositories.NewTargetRepository(db)

	authenticator, err := auth.NewSpotifyAuthenticator(spotify.ClientID, spotify.ClientSecret, spotify.RedirectURI, "", "")
	if err != nil {
		return err
	}

	manager := auth.NewManager(sessions, users, authenticator, shared.WithLogger(r.logger, "component", "auth"))
	library := services.NewSpotifyClient("", nil)
	engine := tasks.NewLibraryEngine(library, visibility, targets, config.Server.Locale)

	cookies := server.CookieConfig{Secure: config.Server.SecureCookies}

	router := server.NewBasicRouter()
	router.Use(server.Logging(shared.WithLogger(r.logger, "component", "http")))
	router.Use(server.SessionMiddleware(manager, cookies, shared.WithLogger(r.logger, "component", "session")))
	router.Handler(server.NewAuthHandler(authenticator, manager, users, library, cookies, r.logger))
	router.Handler(server.NewPlaylistHandler(engine, r.logger))

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("spindle listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

// Login opens the default browser at the running server's login page.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))

	url := fmt.Sprintf("http://%s:%d/auth/login", config.Server.Host, config.Server.Port)
	r.logger.Info("opening browser", "url", url)

	if err := shared.OpenBrowser(url); err != nil {
		r.writePlainln("Open %s in your browser to log in", url)
		return nil
	}

	return nil
}
