// cmd/service/app.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"repo-dashboard/internal/api"
	"repo-dashboard/internal/cache"
	"repo-dashboard/internal/config"
	"repo-dashboard/internal/github"
	"repo-dashboard/internal/model"
	"repo-dashboard/internal/snapshot"
	"repo-dashboard/internal/syncer"
)

const shutdownTimeout = 10 * time.Second

// app holds the wired components shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	reader *snapshot.Reader
	syncer *syncer.Syncer
	router http.Handler
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("Configuration loaded successfully",
		"repositories", len(cfg.Repositories),
		"tracked_packages", len(cfg.Tracked),
		"backend", cfg.SnapshotBackend,
	)

	store, err := snapshot.NewStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	ghClient := github.NewClient(cfg.GithubToken, logger)
	if cfg.GithubAPIURL != "" {
		if ghClient, err = ghClient.WithBaseURL(cfg.GithubAPIURL); err != nil {
			return nil, err
		}
	}

	clock := clockwork.NewRealClock()
	reader := snapshot.NewReader(store, cache.New(clock, cfg.CacheTTL), cfg.CacheTTL, logger)

	appSyncer := syncer.NewSyncer(ghClient, snapshot.NewWriter(store), logger, syncer.Options{
		Repositories:   cfg.Repositories,
		WorkflowName:   cfg.WorkflowName,
		WorkflowBranch: cfg.WorkflowBranch,
		ManifestPath:   cfg.ManifestPath,
		Interval:       cfg.SyncInterval,
		Clock:          clock,
		// A fresh snapshot invalidates everything the API has cached.
		OnSnapshot: func(model.Metadata) { reader.ClearCache() },
	})

	return &app{
		cfg:    cfg,
		logger: logger,
		reader: reader,
		syncer: appSyncer,
		router: api.NewRouter(reader, cfg.Tracked, clock, logger),
	}, nil
}

// serveHTTP runs the API server until ctx ends, then shuts it down gracefully.
func (a *app) serveHTTP(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", "addr", a.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(w io.Writer, format, level string) *slog.Logger {
	logLevel := new(slog.LevelVar)
	setLogLevel(level, logLevel)

	opts := &slog.HandlerOptions{Level: logLevel}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
