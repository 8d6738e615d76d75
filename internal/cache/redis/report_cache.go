package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/redis/go-redis/v9"
)

const reportKey = "check:report:latest"

// ReportCache implements domain.ReportCache, keeping the latest violation
// report as a JSON string without expiry.
type ReportCache struct {
	rdb *redis.Client
}

// NewReportCache creates a ReportCache backed by the given Client.
func NewReportCache(c *Client) *ReportCache {
	return &ReportCache{rdb: c.Underlying()}
}

// SetReport replaces the cached report.
func (rc *ReportCache) SetReport(ctx context.Context, report domain.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("redis: marshal report: %w", err)
	}
	if err := rc.rdb.Set(ctx, reportKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: set report: %w", err)
	}
	return nil
}

// GetReport returns the cached report, or domain.ErrNotFound.
func (rc *ReportCache) GetReport(ctx context.Context) (domain.Report, error) {
	data, err := rc.rdb.Get(ctx, reportKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get report: %w", err)
	}
	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("redis: unmarshal report: %w", err)
	}
	return report, nil
}

var _ domain.ReportCache = (*ReportCache)(nil)
