package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mediplan/mediplan/internal/web/guard"
	httpapi "github.com/mediplan/mediplan/internal/web/http"
	"github.com/mediplan/mediplan/internal/web/proxy"
	"github.com/mediplan/mediplan/internal/web/session"
	"github.com/mediplan/mediplan/pkg/authsdk"
	"github.com/mediplan/mediplan/pkg/jwtx"
	"github.com/mediplan/mediplan/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the web gateway with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	sdk          *authsdk.SDKClient
	keys         *jwtx.KeySet
	keyRefresher *KeyRefresher

	// Session machinery
	store     *session.CookieStore
	refresher *session.Coordinator
	guard     *guard.Guard
	proxy     *proxy.Client

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "web-gateway",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	app.sdk = authsdk.NewSDKClient(cfg.AuthzBaseURL, cfg.OAuthClientID)

	if err := app.initSession(); err != nil {
		return nil, err
	}
	app.initGuard()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.keyRefresher.Start()

	app.logger.Info("web gateway starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down web gateway...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.keyRefresher.Stop()

	app.logger.Info("web gateway stopped")
	return nil
}

// initSession builds the cookie store and the refresh coordinator.
func (app *Application) initSession() error {
	key, err := app.sealKey()
	if err != nil {
		return err
	}

	sealer, err := session.NewSealer(key)
	if err != nil {
		return fmt.Errorf("failed to initialize cookie sealer: %w", err)
	}

	app.store = &session.CookieStore{
		Sealer:           sealer,
		Secure:           app.cfg.SecureCookies,
		LegacyAccessName: app.cfg.LegacyAccessCookie,
	}
	app.refresher = session.NewCoordinator(app.sdk, app.store, app.logger)

	return nil
}

// sealKey decodes the configured seal key, or generates an ephemeral one.
// Ephemeral keys mean every restart logs everyone out, acceptable in dev
// but worth a loud warning.
func (app *Application) sealKey() ([]byte, error) {
	if app.cfg.CookieSealKey == "" {
		app.logger.Warn("COOKIE_SEAL_KEY not set, using an ephemeral key; sessions will not survive restarts")
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral seal key: %w", err)
		}
		return key, nil
	}

	key, err := base64.StdEncoding.DecodeString(app.cfg.CookieSealKey)
	if err != nil {
		return nil, fmt.Errorf("COOKIE_SEAL_KEY is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("COOKIE_SEAL_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// initGuard builds the key set, the verifier and the route guard.
func (app *Application) initGuard() {
	app.keys = jwtx.NewKeySet()
	app.keyRefresher = NewKeyRefresher(app.sdk, app.keys, app.cfg.JWKSRefreshInterval, app.logger)

	verifier := jwtx.NewKeySetVerifier(app.keys, app.cfg.Issuer, []string{app.cfg.Audience})

	resolver := &guard.Resolver{
		Keys:     app.keys,
		Verifier: verifier,
		SDK:      app.sdk,
		Log:      app.logger,
		Kick:     app.keyRefresher.Kick,
	}

	app.guard = &guard.Guard{
		Resolver:  resolver,
		Store:     app.store,
		Refresher: app.refresher,
		Log:       app.logger,
	}

	app.proxy = proxy.NewClient(app.cfg.ResourceBaseURL, app.store, app.refresher, app.logger)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keys,
		app.cfg.OAuthRedirectURL,
		BuildVersion,
		app.logger,
	)

	// Wire dependencies to router
	router.SDK = app.sdk
	router.Store = app.store
	router.Refresher = app.refresher
	router.Guard = app.guard
	router.Proxy = app.proxy
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
