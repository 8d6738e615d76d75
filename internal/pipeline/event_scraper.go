package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/polycache/internal/codec"
	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/alanyoungcy/polycache/internal/platform/polymarket"
)

const (
	// ResourceEvents names the event loop in logs and progress records.
	ResourceEvents = "events"
	// DefaultEventsPageSize is the Gamma page size; a shorter page is the last.
	DefaultEventsPageSize = 500
)

// EventScraper pages through Gamma events in ascending id order and stores
// the fresh ones, one transaction per page.
type EventScraper struct {
	db       domain.Database
	source   EventSource
	pageSize int
	progress domain.ProgressCache
	logger   *slog.Logger
}

// NewEventScraper creates a new EventScraper. A pageSize < 1 selects
// DefaultEventsPageSize; progress may be nil.
func NewEventScraper(db domain.Database, source EventSource, pageSize int, progress domain.ProgressCache, logger *slog.Logger) *EventScraper {
	if pageSize < 1 {
		pageSize = DefaultEventsPageSize
	}
	return &EventScraper{
		db:       db,
		source:   source,
		pageSize: pageSize,
		progress: progress,
		logger:   logger.With(slog.String("component", "event_scraper")),
	}
}

// Run executes a single scrape run. It resumes after the events already
// fetched, kept or skipped, and stops at a short page or the page limit.
func (s *EventScraper) Run(ctx context.Context, opts RunOptions) error {
	logger := s.logger.With(slog.String("run_id", opts.RunID))

	offset, err := resumeOffset(ctx, s.db, opts.Offset, domain.KeyspaceGammaEvents, domain.KeyspaceSkippedGammaEvents)
	if err != nil {
		return err
	}
	keys := newKeyTracker("event")
	pages, totalSynced := 0, 0

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("event scraper context cancelled: %w", err)
		}

		q := polymarket.EventsQuery{Limit: s.pageSize, Offset: offset, Order: "id", Ascending: true}
		events, err := s.source.GetEvents(ctx, q)
		if err != nil {
			return fmt.Errorf("fetching events at offset %d: %w", offset, err)
		}
		if len(events) == 0 {
			break
		}

		entries, slugs, fresh, err := convertEvents(events)
		if err != nil {
			return fmt.Errorf("events page at offset %d: %w", offset, err)
		}
		if err := keys.admit(slugs); err != nil {
			return fmt.Errorf("events page at offset %d: %w", offset, err)
		}
		if err := writePage(ctx, s.db, entries); err != nil {
			return fmt.Errorf("events page at offset %d: %w", offset, err)
		}

		offset += len(events)
		pages++
		totalSynced += fresh
		logger.Info("synced event page",
			slog.Int("batch_size", len(events)),
			slog.Int("fresh", fresh),
			slog.Int("total_synced", totalSynced),
			slog.Int("offset", offset),
			slog.Int("page", pages),
		)
		publishProgress(ctx, s.progress, logger, domain.SyncProgress{
			RunID:       opts.RunID,
			Resource:    ResourceEvents,
			Offset:      offset,
			Page:        pages,
			TotalSynced: totalSynced,
			UpdatedAt:   time.Now().UTC(),
		})

		if len(events) < s.pageSize || opts.limitReached(pages) {
			break
		}
	}

	logger.Info("event scrape complete",
		slog.Int("total_synced", totalSynced),
		slog.Int("pages", pages),
	)
	return nil
}

// convertEvents admits the fresh events of a page and returns their entries
// and slugs. Stale events are skipped, not rejected: their ids go to the
// skipped keyspace so that every fetched event is counted on resume.
func convertEvents(events []polymarket.Event) (entries []entry, slugs []string, fresh int, err error) {
	var errs []error
	for i := range events {
		if !events[i].IsFresh(domain.FreshnessCutoff) {
			id, err := domain.ParseEventID(events[i].ID)
			if err != nil {
				errs = append(errs, fmt.Errorf("stale event: %w", err))
				continue
			}
			entries = append(entries, entry{ks: domain.KeyspaceSkippedGammaEvents, key: domain.EventKey(id), value: []byte(events[i].ID)})
			continue
		}
		ev, err := codec.AdmitGammaEvent(&events[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entries = append(entries, entry{ks: domain.KeyspaceGammaEvents, key: ev.Key, value: ev.Binary})
		slugs = append(slugs, ev.Value.Slug)
		fresh++
	}
	if err := batch("convert events", len(events), errs); err != nil {
		return nil, nil, 0, err
	}
	return entries, slugs, fresh, nil
}
