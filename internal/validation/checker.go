package validation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/polycache/internal/codec"
	"github.com/alanyoungcy/polycache/internal/domain"
)

// Checker runs the registered properties over a snapshot of the cache.
type Checker struct {
	marketResponses *Registry[domain.MarketResponse]
	orderBooks      *Registry[domain.OrderBookSummary]
	events          *Registry[domain.GammaEvent]
	exampleLimit    int
	logger          *slog.Logger
}

// NewChecker creates a Checker over the given registries. An exampleLimit
// < 1 selects domain.DefaultExampleLimit.
func NewChecker(
	marketResponses *Registry[domain.MarketResponse],
	orderBooks *Registry[domain.OrderBookSummary],
	events *Registry[domain.GammaEvent],
	exampleLimit int,
	logger *slog.Logger,
) *Checker {
	if exampleLimit < 1 {
		exampleLimit = domain.DefaultExampleLimit
	}
	return &Checker{
		marketResponses: marketResponses,
		orderBooks:      orderBooks,
		events:          events,
		exampleLimit:    exampleLimit,
		logger:          logger.With(slog.String("component", "checker")),
	}
}

// NewDefaultChecker creates a Checker with every built-in property.
func NewDefaultChecker(exampleLimit int, logger *slog.Logger) *Checker {
	return NewChecker(
		DefaultMarketProperties(),
		DefaultOrderBookProperties(),
		DefaultEventProperties(),
		exampleLimit,
		logger,
	)
}

// Properties lists the registered property names per keyspace.
func (c *Checker) Properties() map[domain.Keyspace][]string {
	return map[domain.Keyspace][]string{
		domain.KeyspaceMarketResponses: c.marketResponses.List(),
		domain.KeyspaceOrderBooks:      c.orderBooks.List(),
		domain.KeyspaceGammaEvents:     c.events.List(),
	}
}

// Check scans every audited keyspace within one snapshot. Every registered
// property appears in the report, with a zero count when it holds. Records
// that fail to decode are collected and returned together once the
// keyspace has been scanned.
func (c *Checker) Check(ctx context.Context, db domain.Database) (domain.Report, error) {
	snap, err := db.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("validation: open snapshot: %w", err)
	}
	defer snap.Close()

	report := make(domain.Report)
	for _, names := range c.Properties() {
		for _, name := range names {
			report[name] = &domain.ViolationStats{Examples: []string{}}
		}
	}
	if err := scan(ctx, c, snap, domain.KeyspaceMarketResponses, c.marketResponses,
		codec.UnmarshalMarketResponse, report); err != nil {
		return nil, err
	}
	if err := scan(ctx, c, snap, domain.KeyspaceOrderBooks, c.orderBooks,
		codec.UnmarshalOrderBook, report); err != nil {
		return nil, err
	}
	if err := scan(ctx, c, snap, domain.KeyspaceGammaEvents, c.events,
		codec.UnmarshalGammaEvent, report); err != nil {
		return nil, err
	}

	c.logger.Info("check complete",
		slog.Int("properties", len(report)),
		slog.Int("violated_properties", report.Violated()),
		slog.Uint64("violations", report.Total()),
	)
	return report, nil
}

func scan[T any](
	ctx context.Context,
	c *Checker,
	snap domain.Snapshot,
	ks domain.Keyspace,
	registry *Registry[T],
	decode func([]byte) (T, error),
	report domain.Report,
) error {
	props := registry.instantiate()
	keyString := func(key []byte) string { return codec.FormatKey(ks, key) }
	records := 0
	var errs []error
	err := snap.Iterate(ctx, ks, domain.ListOpts{}, func(key, value []byte) error {
		records++
		rec, err := decode(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("decode %s: %w", keyString(key), err))
			return nil
		}
		for _, p := range props {
			ok, err := p.prop.Check(ctx, key, &rec, snap)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s on %s: %w", p.name, keyString(key), err))
				continue
			}
			if ok {
				continue
			}
			stats, exists := report[p.name]
			if !exists {
				stats = &domain.ViolationStats{}
				report[p.name] = stats
			}
			stats.Record(keyString(key), c.exampleLimit)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("validation: scan %s: %w", ks, err)
	}
	if err := domain.JoinBatch("validation: scan "+string(ks), records, errs); err != nil {
		return err
	}
	c.logger.Debug("checked keyspace",
		slog.String("keyspace", string(ks)),
		slog.Int("records", records),
		slog.Int("properties", len(props)),
	)
	return nil
}
