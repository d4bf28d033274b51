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
	"golang.org/x/sync/errgroup"

	"github.com/starford/syncembed/internal/api"
	"github.com/starford/syncembed/internal/command"
	"github.com/starford/syncembed/internal/embed"
	"github.com/starford/syncembed/internal/index"
	"github.com/starford/syncembed/internal/mcpserver"
	"github.com/starford/syncembed/internal/noteservice"
	"github.com/starford/syncembed/internal/sse"
	"github.com/starford/syncembed/internal/storage"
)

// vault bundles the document store and its index.
type vault struct {
	store *storage.Vault
	db    *index.DB
}

// openVault opens the vault directory and index and runs the initial sync.
func openVault(ctx context.Context, cfg *Config, logger *slog.Logger) (*vault, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.OpenVault(cfg.Vault.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(ctx, db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return &vault{store: store, db: db}, nil
}

// Run starts the HTTP host with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()),
		slog.Duration("embed_debounce", cfg.Embed.Debounce))

	v, err := openVault(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer v.db.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Keep the index current and tell clients about vault changes.
	updater := index.NewUpdater(v.db, v.store, logger, func(ev storage.Event) {
		broker.PublishNoteEvent(ev.Kind, ev.Path)
	})
	v.store.OnEvent(updater.Handle)

	// Embed session: windows, focus routing and editor commands.
	session := embed.NewSession(v.store, command.NewPipeline(),
		embed.WithLogger(logger),
		embed.WithSettings(cfg.Embed.Settings()),
		embed.WithLazyLoad(cfg.Embed.LazyLoad),
		embed.WithResolver(embed.LinkResolver{Index: v.db, Store: v.store}),
		embed.WithNotify(func(e embed.Event) {
			broker.Publish(sse.Event{Type: e.Type, Window: e.Window, Data: e})
		}),
	)

	// Build API handler and router.
	h := api.NewHandler(session, noteservice.NewService(v.store, v.db))
	apiRouter := api.NewRouter(h, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
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

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	// Start vault watcher; it feeds the index and open windows.
	g.Go(func() error {
		if err := v.store.Run(gCtx); err != nil {
			return fmt.Errorf("watcher error: %w", err)
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
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
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Pending edits go to disk before windows detach.
		if err := session.Flush(shutdownCtx); err != nil {
			logger.Error("embed flush error", slog.String("error", err.Error()))
		}
		session.Close()

		// Stops the watcher.
		stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the section tools over stdio. Logs go to stderr because
// stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	v, err := openVault(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer v.db.Close()

	srv := mcpserver.New(noteservice.NewService(v.store, v.db), app.version)
	logger.Info("MCP server starting", slog.String("vault_path", cfg.Vault.Path))
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp serve: %w", err)
	}
	return nil
}
