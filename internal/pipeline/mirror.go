package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/polycache/internal/codec"
	"github.com/alanyoungcy/polycache/internal/domain"
)

// DefaultMirrorBatchSize is the number of markets upserted per round trip.
const DefaultMirrorBatchSize = 500

// Mirror copies the derived markets keyspace into a relational store.
type Mirror struct {
	db        domain.Database
	store     domain.CachedMarketStore
	batchSize int
	logger    *slog.Logger
}

// NewMirror creates a Mirror. A batchSize < 1 selects DefaultMirrorBatchSize.
func NewMirror(db domain.Database, store domain.CachedMarketStore, batchSize int, logger *slog.Logger) *Mirror {
	if batchSize < 1 {
		batchSize = DefaultMirrorBatchSize
	}
	return &Mirror{
		db:        db,
		store:     store,
		batchSize: batchSize,
		logger:    logger.With(slog.String("component", "mirror")),
	}
}

// Run upserts every stored market from one snapshot and returns how many
// were written.
func (m *Mirror) Run(ctx context.Context) (int, error) {
	snap, err := m.db.Snapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("pipeline: mirror snapshot: %w", err)
	}
	defer snap.Close()

	total := 0
	buf := make([]domain.Market, 0, m.batchSize)
	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		if err := m.store.UpsertBatch(ctx, buf); err != nil {
			return err
		}
		total += len(buf)
		m.logger.InfoContext(ctx, "mirrored market batch",
			slog.Int("batch_size", len(buf)),
			slog.Int("total_mirrored", total),
		)
		buf = buf[:0]
		return nil
	}

	err = snap.Iterate(ctx, domain.KeyspaceMarkets, domain.ListOpts{}, func(key, value []byte) error {
		mk, err := codec.UnmarshalMarket(value)
		if err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		buf = append(buf, mk)
		if len(buf) >= m.batchSize {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		return total, fmt.Errorf("pipeline: mirror markets: %w", err)
	}
	return total, nil
}
