package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// WriterLockKey is the lease that keeps two processes from writing the same
// cache directory at once.
const WriterLockKey = "polycache:writer"

// Orchestrator runs the market and event loops side by side. The loops keep
// independent offsets; the first one to fail cancels the other.
type Orchestrator struct {
	marketScraper *MarketScraper
	eventScraper  *EventScraper
	lock          domain.LockManager
	lockTTL       time.Duration
	logger        *slog.Logger
}

// NewOrchestrator creates a new Orchestrator. lock may be nil, in which case
// no writer lease is taken.
func NewOrchestrator(
	marketScraper *MarketScraper,
	eventScraper *EventScraper,
	lock domain.LockManager,
	lockTTL time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		marketScraper: marketScraper,
		eventScraper:  eventScraper,
		lock:          lock,
		lockTTL:       lockTTL,
		logger:        logger.With(slog.String("component", "orchestrator")),
	}
}

// Run performs one sync of both resources. Pages committed before a failure
// stay committed; the next run resumes after them.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) error {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	logger := o.logger.With(slog.String("run_id", opts.RunID))

	if o.lock != nil {
		unlock, err := o.lock.Acquire(ctx, WriterLockKey, o.lockTTL)
		if err != nil {
			return fmt.Errorf("pipeline: acquire writer lease: %w", err)
		}
		defer unlock()
	}

	logger.Info("sync starting", slog.Int("page_limit", opts.PageLimit))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := o.marketScraper.Run(gctx, opts); err != nil {
			return fmt.Errorf("market scraper: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := o.eventScraper.Run(gctx, opts); err != nil {
			return fmt.Errorf("event scraper: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("sync stopped with error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("sync complete")
	return nil
}

// RunLoop repeats Run every interval until ctx is cancelled. Failed runs are
// logged and retried on the next tick. The offset override only applies to
// the first run.
func (o *Orchestrator) RunLoop(ctx context.Context, opts RunOptions, interval time.Duration) error {
	if err := o.Run(ctx, opts); err != nil && ctx.Err() == nil {
		o.logger.Error("sync failed", slog.String("error", err.Error()))
	}
	opts.Offset = nil

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("sync loop stopped")
			return ctx.Err()
		case <-ticker.C:
			opts.RunID = ""
			if err := o.Run(ctx, opts); err != nil && ctx.Err() == nil {
				o.logger.Error("sync failed", slog.String("error", err.Error()))
			}
		}
	}
}
