// Package internal provides the main application initialization and
// runtime logic for each mode (index, ask, enrich, serve, mcp).
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
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/askservice"
	"github.com/starford/ansuz/internal/enrich"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/llm"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/storage"
)

// runtime bundles the wired components every mode needs.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  storage.Provider
	db     *index.DB
	model  llm.Invoker // nil when no model is configured
	svc    *askservice.Service
}

// newRuntime validates the environment and wires components from config.
// Configuration problems (missing vault path, unopenable database) are the
// only fatal errors; they are reported before any processing begins.
func newRuntime(opts ...Option) (*runtime, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("model_enabled", cfg.Model.Enabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	var model llm.Invoker
	if cfg.Model.Enabled() {
		model = llm.NewOllama(cfg.Model.BaseURL, cfg.Model.Name, cfg.Model.Timeout)
	}

	return &runtime{
		cfg:    cfg,
		logger: logger,
		store:  store,
		db:     db,
		model:  model,
		svc:    askservice.New(db, model, cfg.Search.MaxResults, logger),
	}, nil
}

func (rt *runtime) close() {
	if err := rt.db.Close(); err != nil {
		rt.logger.Warn("close index failed", slog.String("error", err.Error()))
	}
}

// IndexVault runs one incremental index pass over the vault.
func IndexVault(_ context.Context, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}
	defer rt.close()

	start := time.Now()
	if err := index.Sync(rt.db, rt.store, rt.cfg.Search.PreviewLength, rt.logger); err != nil {
		return fmt.Errorf("index vault: %w", err)
	}
	docs, tags, err := rt.db.Stats()
	if err != nil {
		return err
	}
	rt.logger.Info("index pass complete",
		slog.Int("documents", docs),
		slog.Int("tags", tags),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// Ask indexes the vault, answers one question, and prints the answer.
func Ask(ctx context.Context, question string, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := index.Sync(rt.db, rt.store, rt.cfg.Search.PreviewLength, rt.logger); err != nil {
		rt.logger.Warn("pre-ask sync failed", slog.String("error", err.Error()))
	}

	answer, hits := rt.svc.Ask(ctx, question)
	fmt.Println(answer)
	if len(hits) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, h := range hits {
			fmt.Printf("  %s (%s)\n", h.Path, h.Kind())
		}
	}
	return nil
}

// EnrichOptions carries enrich-mode flags from the CLI.
type EnrichOptions struct {
	ForceUpdate bool
	MaxFiles    int
	Workers     int // 0 = use config default
}

// EnrichVault regenerates frontmatter for vault documents in parallel.
func EnrichVault(ctx context.Context, eo EnrichOptions, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}
	defer rt.close()

	metas, err := rt.store.List("")
	if err != nil {
		return fmt.Errorf("enrich: list vault: %w", err)
	}
	paths := make([]string, len(metas))
	for i, m := range metas {
		paths[i] = m.Path
	}

	workers := eo.Workers
	if workers <= 0 {
		workers = rt.cfg.Enrich.Workers
	}

	pipeline := enrich.NewPipeline(rt.store, rt.model, rt.logger)
	start := time.Now()
	outcomes := pipeline.Run(ctx, paths, enrich.Options{
		ForceUpdate: eo.ForceUpdate,
		MaxFiles:    eo.MaxFiles,
		Workers:     workers,
		TagPolicy:   rt.cfg.Enrich.TagPolicy,
	})

	var enriched, unchanged, failed int
	for _, o := range outcomes {
		switch o.Status {
		case enrich.StatusEnriched:
			enriched++
		case enrich.StatusUnchanged:
			unchanged++
		case enrich.StatusFailed:
			failed++
			rt.logger.Error("enrich failed", slog.String("path", o.Path), slog.String("reason", o.Reason))
		}
	}
	rt.logger.Info("enrichment complete",
		slog.Int("enriched", enriched),
		slog.Int("unchanged", unchanged),
		slog.Int("failed", failed),
		slog.Int("total", len(outcomes)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// Serve runs the HTTP API with a live index watcher until ctx is
// cancelled or a shutdown signal arrives.
func Serve(ctx context.Context, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}
	defer rt.close()
	cfg := rt.cfg
	logger := rt.logger

	// Initial sync so queries see current vault state.
	if err := index.Sync(rt.db, rt.store, cfg.Search.PreviewLength, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Keep the index current while serving.
	g.Go(func() error {
		return index.Watch(gCtx, rt.db, rt.store, cfg.Vault.Path, cfg.Search.PreviewLength, logger, func(kind, path string) {
			broker.PublishDocumentEvent(kind, path)
		})
	})

	g.Go(func() error {
		logger.Info("starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("context cancelled, initiating shutdown")
		}

		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("server stopped successfully")
	return nil
}
