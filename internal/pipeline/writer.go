package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/alanyoungcy/polycache/internal/platform/polymarket"
)

// entry is one encoded record waiting to be written.
type entry struct {
	ks    domain.Keyspace
	key   []byte
	value []byte
}

// writePage inserts entries in one transaction, commits and persists. The
// sequence runs on a context detached from ctx's cancellation so a page is
// never left committed but not persisted because a sibling loop failed.
func writePage(ctx context.Context, db domain.Database, entries []entry) (err error) {
	ctx = context.WithoutCancel(ctx)

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: begin page: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	for _, e := range entries {
		if err := tx.Insert(ctx, e.ks, e.key, e.value); err != nil {
			return fmt.Errorf("pipeline: write page: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pipeline: commit page: %w", err)
	}
	if err := db.Persist(ctx); err != nil {
		return fmt.Errorf("pipeline: persist page: %w", err)
	}
	return nil
}

// resumeOffset is the starting record offset of a loop: the override when
// given, otherwise the number of records already stored across keyspaces.
func resumeOffset(ctx context.Context, db domain.Database, override *int, keyspaces ...domain.Keyspace) (int, error) {
	if override != nil {
		return *override, nil
	}
	total := 0
	for _, ks := range keyspaces {
		n, err := db.Len(ctx, ks)
		if err != nil {
			return 0, fmt.Errorf("pipeline: count %s: %w", ks, err)
		}
		total += n
	}
	return total, nil
}

// RunOptions bound one sync run.
type RunOptions struct {
	// RunID tags log lines and progress records.
	RunID string
	// PageLimit stops each loop after that many pages. Zero means no limit.
	PageLimit int
	// Offset overrides the offset derived from the stored record count.
	Offset *int
}

func (o RunOptions) limitReached(pages int) bool {
	return o.PageLimit > 0 && pages >= o.PageLimit
}

// endOfMarkets reports whether a CLOB cursor marks the last page.
func endOfMarkets(cursor string) bool {
	return cursor == polymarket.EndCursor || cursor == ""
}
