package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/polycache/internal/analytics"
	"github.com/alanyoungcy/polycache/internal/codec"
	"github.com/alanyoungcy/polycache/internal/domain"
)

// EventTimeSpread is the notification event type of a time spread alert.
const EventTimeSpread = "time_spread"

// OpportunityNotifier alerts operators. Implementations suppress repeats of
// the same key.
type OpportunityNotifier interface {
	NotifyOnce(ctx context.Context, event, key, title, message string) error
}

// Monitor keeps the stored date cascades fresh by re-fetching them by id.
type Monitor struct {
	db        domain.Database
	source    EventRefresher
	chunkSize int
	notifier  OpportunityNotifier
	logger    *slog.Logger
}

// NewMonitor creates a Monitor. A chunkSize < 1 selects
// DefaultEventsPageSize; notifier may be nil.
func NewMonitor(db domain.Database, source EventRefresher, chunkSize int, notifier OpportunityNotifier, logger *slog.Logger) *Monitor {
	if chunkSize < 1 {
		chunkSize = DefaultEventsPageSize
	}
	return &Monitor{
		db:        db,
		source:    source,
		chunkSize: chunkSize,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "cascade_monitor")),
	}
}

// MonitorOptions bound a monitor run.
type MonitorOptions struct {
	// MaxIterations stops the loop after that many refreshes. Zero means
	// run until ctx is cancelled.
	MaxIterations int
	// Interval is the pause between refreshes.
	Interval time.Duration
}

// CascadeIDs returns the ids of every stored event classified as a date
// cascade, in key order.
func (m *Monitor) CascadeIDs(ctx context.Context) ([]domain.EventID, error) {
	snap, err := m.db.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: open snapshot: %w", err)
	}
	defer snap.Close()

	var ids []domain.EventID
	err = snap.Iterate(ctx, domain.KeyspaceGammaEvents, domain.ListOpts{}, func(key, value []byte) error {
		ev, err := codec.UnmarshalGammaEvent(value)
		if err != nil {
			return fmt.Errorf("decode event %x: %w", key, err)
		}
		if ev.IsCascade() {
			ids = append(ids, ev.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: collect date cascades: %w", err)
	}
	return ids, nil
}

// Refresh re-fetches ids in chunks, stores each chunk in its own
// transaction and returns the refreshed events.
func (m *Monitor) Refresh(ctx context.Context, ids []domain.EventID) ([]domain.GammaEvent, error) {
	var out []domain.GammaEvent
	for _, c := range chunk(ids, m.chunkSize) {
		raws, err := m.source.GetEventsByID(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("pipeline: refresh %d events: %w", len(c), err)
		}

		entries := make([]entry, 0, len(raws))
		var errs []error
		for i := range raws {
			ev, err := codec.AdmitGammaEvent(&raws[i])
			if err != nil {
				errs = append(errs, err)
				continue
			}
			entries = append(entries, entry{ks: domain.KeyspaceGammaEvents, key: ev.Key, value: ev.Binary})
			out = append(out, ev.Value)
		}
		if err := batch("convert refreshed events", len(raws), errs); err != nil {
			return nil, err
		}
		if err := writePage(ctx, m.db, entries); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Run collects the cascade ids once, then refreshes them repeatedly and
// hands every refreshed batch to fn.
func (m *Monitor) Run(ctx context.Context, opts MonitorOptions, fn func(context.Context, []domain.GammaEvent) error) error {
	ids, err := m.CascadeIDs(ctx)
	if err != nil {
		return err
	}
	m.logger.Info("monitoring date cascades", slog.Int("events", len(ids)))

	for iteration := 1; ; iteration++ {
		events, err := m.Refresh(ctx, ids)
		if err != nil {
			return err
		}
		m.logger.Debug("refreshed date cascades",
			slog.Int("iteration", iteration),
			slog.Int("events", len(events)),
		)
		if fn != nil {
			if err := fn(ctx, events); err != nil {
				return err
			}
		}

		if opts.MaxIterations > 0 && iteration >= opts.MaxIterations {
			return nil
		}
		if opts.Interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.Interval):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// TimeSpreads finds the inverted pairs of the given cascades and notifies
// each one that was not reported recently.
func (m *Monitor) TimeSpreads(ctx context.Context, events []domain.GammaEvent) []domain.TimeSpreadOpportunity {
	var out []domain.TimeSpreadOpportunity
	for i := range events {
		ev := &events[i]
		opps := analytics.TimeSpreadOpportunities(ev, m.source.EventURL(ev.ID))
		for _, o := range opps {
			m.notify(ctx, ev, o)
		}
		out = append(out, opps...)
	}
	return out
}

func (m *Monitor) notify(ctx context.Context, ev *domain.GammaEvent, o domain.TimeSpreadOpportunity) {
	if m.notifier == nil {
		return
	}
	key := fmt.Sprintf("%d|%s|%s", ev.ID, o.Prev.Question, o.Next.Question)
	title := "Time spread: " + ev.Slug
	msg := fmt.Sprintf("%q yes %s > %q yes %s (spread %s)\n%s",
		o.Prev.Question, o.Prev.YesPrice.Decimal, o.Next.Question, o.Next.YesPrice.Decimal, o.Spread, o.EventAPIURL)
	if err := m.notifier.NotifyOnce(ctx, EventTimeSpread, key, title, msg); err != nil {
		m.logger.WarnContext(ctx, "time spread notification failed",
			slog.Uint64("event_id", ev.ID),
			slog.String("error", err.Error()),
		)
	}
}
