package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/redis/go-redis/v9"
)

// progressTTL keeps a finished run visible for a day.
const progressTTL = 24 * time.Hour

// ProgressCache implements domain.ProgressCache with one Redis hash per
// resource loop.
//
// Key schema:
//
//	sync:progress:{resource} - hash with run_id, offset, page, total_synced, updated_at
type ProgressCache struct {
	rdb *redis.Client
}

// NewProgressCache creates a ProgressCache backed by the given Client.
func NewProgressCache(c *Client) *ProgressCache {
	return &ProgressCache{rdb: c.Underlying()}
}

func progressKey(resource string) string { return "sync:progress:" + resource }

// SetProgress overwrites the progress of p.Resource.
func (pc *ProgressCache) SetProgress(ctx context.Context, p domain.SyncProgress) error {
	key := progressKey(p.Resource)
	pipe := pc.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"run_id", p.RunID,
		"offset", p.Offset,
		"page", p.Page,
		"total_synced", p.TotalSynced,
		"updated_at", p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	pipe.Expire(ctx, key, progressTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set progress %s: %w", p.Resource, err)
	}
	return nil
}

// GetProgress returns the last progress of resource, or domain.ErrNotFound.
func (pc *ProgressCache) GetProgress(ctx context.Context, resource string) (domain.SyncProgress, error) {
	vals, err := pc.rdb.HGetAll(ctx, progressKey(resource)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.SyncProgress{}, fmt.Errorf("redis: get progress %s: %w", resource, err)
	}
	if len(vals) == 0 {
		return domain.SyncProgress{}, domain.ErrNotFound
	}

	p := domain.SyncProgress{RunID: vals["run_id"], Resource: resource}
	var errs []error
	for field, dst := range map[string]*int{"offset": &p.Offset, "page": &p.Page, "total_synced": &p.TotalSynced} {
		n, err := strconv.Atoi(vals[field])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
		*dst = n
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, vals["updated_at"]); err != nil {
		errs = append(errs, fmt.Errorf("updated_at: %w", err))
	}
	if len(errs) > 0 {
		return domain.SyncProgress{}, fmt.Errorf("redis: decode progress %s: %w", resource, errors.Join(errs...))
	}
	return p, nil
}

var _ domain.ProgressCache = (*ProgressCache)(nil)
