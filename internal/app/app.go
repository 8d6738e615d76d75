// Package app wires the local cache, the provider clients and the optional
// sinks together and runs the commands of polycache on top of them.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/polycache/internal/config"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	deps    *Dependencies
	closers []func()
}

// New wires every dependency the configuration enables. The caller must
// call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	deps, cleanup, err := Wire(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("app: wire dependencies: %w", err)
	}
	a := &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
		deps:   deps,
	}
	a.closers = append(a.closers, cleanup)
	a.logger.DebugContext(ctx, "application wired",
		slog.String("cache_dir", cfg.Cache.Dir),
		slog.Bool("redis", cfg.Redis.Enabled),
		slog.Bool("s3", cfg.S3.Enabled),
		slog.Bool("postgres", cfg.Postgres.Enabled),
	)
	return a, nil
}

// Deps returns the wired dependencies.
func (a *App) Deps() *Dependencies {
	return a.deps
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Debug("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
