package validation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polycache/internal/codec"
	"github.com/alanyoungcy/polycache/internal/domain"
)

// DefaultReplayBatchSize is the number of records replayed concurrently.
const DefaultReplayBatchSize = 1024

// ReplaySummary counts the replayed records per keyspace.
type ReplaySummary map[domain.Keyspace]int

// Replayer pushes every stored API record back through the admission gate,
// catching records that an older encoding admitted but the current one
// would not.
type Replayer struct {
	batchSize int
	logger    *slog.Logger
}

// NewReplayer creates a Replayer. A batchSize < 1 selects
// DefaultReplayBatchSize.
func NewReplayer(batchSize int, logger *slog.Logger) *Replayer {
	if batchSize < 1 {
		batchSize = DefaultReplayBatchSize
	}
	return &Replayer{batchSize: batchSize, logger: logger.With(slog.String("component", "replayer"))}
}

type storedRecord struct {
	key, value []byte
}

// Run replays codec.Replayable within one snapshot. Every failing record is
// reported; the error joins one domain.BatchError per failing keyspace.
func (r *Replayer) Run(ctx context.Context, db domain.Database) (ReplaySummary, error) {
	snap, err := db.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("validation: open snapshot: %w", err)
	}
	defer snap.Close()

	summary := make(ReplaySummary)
	var failed []error
	for _, ks := range codec.Replayable {
		n, err := r.replayKeyspace(ctx, snap, ks)
		summary[ks] = n
		if err == nil {
			continue
		}
		var be *domain.BatchError
		if !errors.As(err, &be) {
			return summary, err
		}
		failed = append(failed, err)
	}

	r.logger.Info("replay complete",
		slog.Int("market_responses", summary[domain.KeyspaceMarketResponses]),
		slog.Int("order_books", summary[domain.KeyspaceOrderBooks]),
		slog.Int("failed_keyspaces", len(failed)),
	)
	return summary, errors.Join(failed...)
}

func (r *Replayer) replayKeyspace(ctx context.Context, snap domain.Snapshot, ks domain.Keyspace) (int, error) {
	var (
		pending []storedRecord
		errs    []error
		total   int
	)
	flush := func() error {
		errs = append(errs, r.replayBatch(ctx, ks, pending)...)
		total += len(pending)
		pending = pending[:0]
		return ctx.Err()
	}

	err := snap.Iterate(ctx, ks, domain.ListOpts{}, func(key, value []byte) error {
		pending = append(pending, storedRecord{key: bytes.Clone(key), value: bytes.Clone(value)})
		if len(pending) < r.batchSize {
			return nil
		}
		return flush()
	})
	if err == nil && len(pending) > 0 {
		err = flush()
	}
	if err != nil {
		return total, fmt.Errorf("validation: replay %s: %w", ks, err)
	}

	r.logger.Debug("replayed keyspace",
		slog.String("keyspace", string(ks)),
		slog.Int("records", total),
		slog.Int("failed", len(errs)),
	)
	return total, domain.JoinBatch("validation: replay "+string(ks), total, errs)
}

// replayBatch replays records in parallel and returns the failures in
// record order.
func (r *Replayer) replayBatch(ctx context.Context, ks domain.Keyspace, records []storedRecord) []error {
	results := make([]error, len(records))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, rec := range records {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = codec.Replay(ks, rec.key, rec.value)
			return nil
		})
	}
	g.Wait()

	var errs []error
	for _, err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
