// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	nanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/topwebdesignco/advanced-schema-manager/internal/api"
	"github.com/topwebdesignco/advanced-schema-manager/internal/auth"
	"github.com/topwebdesignco/advanced-schema-manager/internal/content"
	"github.com/topwebdesignco/advanced-schema-manager/internal/derived"
	"github.com/topwebdesignco/advanced-schema-manager/internal/inject"
	"github.com/topwebdesignco/advanced-schema-manager/internal/mcpserver"
	"github.com/topwebdesignco/advanced-schema-manager/internal/metrics"
	"github.com/topwebdesignco/advanced-schema-manager/internal/resolver"
	"github.com/topwebdesignco/advanced-schema-manager/internal/schemaservice"
	"github.com/topwebdesignco/advanced-schema-manager/internal/sse"
	"github.com/topwebdesignco/advanced-schema-manager/internal/storage"
	"github.com/topwebdesignco/advanced-schema-manager/internal/store"
)

// core holds the components shared by the HTTP server and the MCP server.
type core struct {
	db       *store.DB
	library  *content.Library
	pipeline *inject.Pipeline
	schemas  *schemaservice.Service
	metrics  *metrics.Metrics
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// build opens the database, loads the site and assembles the render pipeline.
// events may be nil.
func (a *application) build(logger *slog.Logger, events schemaservice.Publisher) (*core, error) {
	cfg := a.config

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	fs, err := storage.NewFS(cfg.Site.Path)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	lib := content.NewLibrary(fs, cfg.Site.ContentOptions(), logger)
	if _, err := lib.Reload(); err != nil {
		logger.Warn("initial content load failed", slog.String("error", err.Error()))
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	pipeline := inject.New(
		resolver.New(db),
		derived.New(lib, logger),
		metrics.NewObserver(m, logger),
	)

	svc := schemaservice.New(db, events, schemaservice.Config{StrictJSON: cfg.Schemas.StrictJSON}, logger)

	return &core{db: db, library: lib, pipeline: pipeline, schemas: svc, metrics: m}, nil
}

func nonceSecret(cfg AuthConfig, logger *slog.Logger) (string, error) {
	if cfg.NonceSecret != "" {
		return cfg.NonceSecret, nil
	}
	secret, err := nanoid.New(32)
	if err != nil {
		return "", fmt.Errorf("generate nonce secret: %w", err)
	}
	logger.Warn("auth.nonce_secret is empty, using a random secret; issued nonces will not survive a restart")
	return secret, nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("site_path", cfg.Site.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	c, err := app.build(logger, broker)
	if err != nil {
		return err
	}
	defer c.db.Close()

	secret, err := nonceSecret(cfg.Auth, logger)
	if err != nil {
		return err
	}

	apiRouter := api.NewRouter(api.Deps{
		Schemas:    c.schemas,
		Content:    c.library,
		Pipeline:   c.pipeline,
		Authorizer: auth.NewAuthorizer(cfg.Auth.Mode, cfg.Auth.Token),
		Nonces:     auth.NewNonces(secret, cfg.Auth.NonceTTL),
		Events:     broker,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(c.metrics.Middleware)

	// Unauthenticated endpoints.
	r.Get("/health/live", healthHandler)
	r.Get("/health/ready", healthHandler)
	if c.metrics != nil {
		r.Handle("/metrics", c.metrics.Handler())
	}
	r.Method(http.MethodGet, "/head", api.NewHeadHandler(c.pipeline, c.library))

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	// Cancelling ctx or receiving SIGINT/SIGTERM stops every goroutine below.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Site.Watch {
		g.Go(func() error {
			err := content.Watch(gCtx, c.library, cfg.Site.Path, logger, broker.PublishContentReloaded)
			if err != nil {
				logger.Error("content watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// ServeMCP runs the MCP server over stdin/stdout. Logs go to stderr unless
// WithLogOutput says otherwise.
func ServeMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.logger()

	c, err := app.build(logger, nil)
	if err != nil {
		return err
	}
	defer c.db.Close()

	logger.Info("Starting MCP server on stdio")
	return mcpserver.New(c.schemas, c.library, c.pipeline).ServeStdio()
}

// Install creates the schemas table. Running it again is a no-op.
func Install(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger()

	db, err := store.Open(app.config.SQLite.Path)
	if err != nil {
		return fmt.Errorf("install: %w", err)
	}
	defer db.Close()

	logger.Info("Schema store installed", slog.String("sqlite_path", app.config.SQLite.Path))
	return nil
}

// Uninstall drops the schemas table and every record in it.
func Uninstall(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger()

	db, err := store.OpenExisting(app.config.SQLite.Path)
	if err != nil {
		return fmt.Errorf("uninstall: %w", err)
	}
	defer db.Close()

	if err := db.Uninstall(); err != nil {
		return fmt.Errorf("uninstall: %w", err)
	}

	logger.Info("Schema store removed", slog.String("sqlite_path", app.config.SQLite.Path))
	return nil
}
