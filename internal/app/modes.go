package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/alanyoungcy/polycache/internal/pipeline"
	"github.com/alanyoungcy/polycache/internal/validation"
)

// DownloadOptions configure a cache download.
type DownloadOptions struct {
	PageLimit int
	// Offset overrides the resume offset of both loops.
	Offset *int
	// Interval repeats the download until ctx is cancelled. Zero runs once.
	Interval time.Duration
}

// Download syncs markets, order books and events into the local cache.
func (a *App) Download(ctx context.Context, opts DownloadOptions) error {
	sc := a.cfg.Sync
	books := pipeline.NewOrderBookFetcher(a.deps.Clob, sc.OrderBookChunkSize, a.logger)
	markets := pipeline.NewMarketScraper(a.deps.DB, a.deps.Clob, books, a.deps.ProgressCache, a.logger)
	events := pipeline.NewEventScraper(a.deps.DB, a.deps.Gamma, sc.EventsPageSize, a.deps.ProgressCache, a.logger)
	orch := pipeline.NewOrchestrator(markets, events, a.deps.LockManager, sc.LockTTL.Duration, a.logger)

	runOpts := pipeline.RunOptions{PageLimit: opts.PageLimit, Offset: opts.Offset}
	if opts.Interval > 0 {
		return orch.RunLoop(ctx, runOpts, opts.Interval)
	}
	return orch.Run(ctx, runOpts)
}

// CheckOptions configure a cache audit.
type CheckOptions struct {
	ExampleLimit int
	// Upload stores the report in object storage as well.
	Upload bool
}

// Check audits every keyspace. The report is cached in Redis when Redis is
// enabled.
func (a *App) Check(ctx context.Context, opts CheckOptions) (domain.Report, error) {
	if opts.Upload && a.deps.Exporter == nil {
		return nil, fmt.Errorf("app: upload report: s3 %w", domain.ErrNotConfigured)
	}
	limit := opts.ExampleLimit
	if limit <= 0 {
		limit = a.cfg.Check.ExampleLimit
	}

	report, err := validation.NewDefaultChecker(limit, a.logger).Check(ctx, a.deps.DB)
	if err != nil {
		return nil, err
	}

	if a.deps.ReportCache != nil {
		if err := a.deps.ReportCache.SetReport(ctx, report); err != nil {
			a.logger.WarnContext(ctx, "caching check report failed", slog.String("error", err.Error()))
		}
	}
	if opts.Upload {
		if _, err := a.deps.Exporter.UploadReport(ctx, report); err != nil {
			return report, fmt.Errorf("app: upload report: %w", err)
		}
	}
	return report, nil
}

// Test replays the stored market responses and order books through the
// admission gate.
func (a *App) Test(ctx context.Context, batchSize int) (validation.ReplaySummary, error) {
	return validation.NewReplayer(batchSize, a.logger).Run(ctx, a.deps.DB)
}

// MonitorDefaults returns the monitor bounds configured in the sync section.
func (a *App) MonitorDefaults() pipeline.MonitorOptions {
	return pipeline.MonitorOptions{
		MaxIterations: a.cfg.Sync.MaxIterations,
		Interval:      a.cfg.Sync.RefreshInterval.Duration,
	}
}

// MonitorDateCascades keeps the stored date cascades fresh.
func (a *App) MonitorDateCascades(ctx context.Context, opts pipeline.MonitorOptions) error {
	return a.monitor(nil).Run(ctx, opts, nil)
}

// MonitorTimeSpread refreshes the stored date cascades and hands every
// time-spread opportunity to emit. Configured notification channels are
// alerted once per opportunity within the dedup window.
func (a *App) MonitorTimeSpread(ctx context.Context, opts pipeline.MonitorOptions, emit func(domain.TimeSpreadOpportunity) error) error {
	var notifier pipeline.OpportunityNotifier
	if a.deps.Notifier.Enabled() {
		notifier = a.deps.Notifier
	}
	m := a.monitor(notifier)
	return m.Run(ctx, opts, func(ctx context.Context, events []domain.GammaEvent) error {
		for _, o := range m.TimeSpreads(ctx, events) {
			if err := emit(o); err != nil {
				return err
			}
		}
		return nil
	})
}

func (a *App) monitor(notifier pipeline.OpportunityNotifier) *pipeline.Monitor {
	return pipeline.NewMonitor(a.deps.DB, a.deps.Gamma, a.cfg.Sync.EventsPageSize, notifier, a.logger)
}

// Export streams one keyspace to object storage and returns the object path
// and record count.
func (a *App) Export(ctx context.Context, ks domain.Keyspace) (string, int, error) {
	if a.deps.Exporter == nil {
		return "", 0, fmt.Errorf("app: export: s3 %w", domain.ErrNotConfigured)
	}
	snap, err := a.deps.DB.Snapshot(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("app: export: %w", err)
	}
	defer snap.Close()
	return a.deps.Exporter.ExportKeyspace(ctx, snap, ks)
}

// Mirror upserts every derived market into Postgres and returns how many
// were written.
func (a *App) Mirror(ctx context.Context) (int, error) {
	if a.deps.MarketMirror == nil {
		return 0, fmt.Errorf("app: mirror: postgres %w", domain.ErrNotConfigured)
	}
	return pipeline.NewMirror(a.deps.DB, a.deps.MarketMirror, pipeline.DefaultMirrorBatchSize, a.logger).Run(ctx)
}
