package domain

import (
	"context"
	"time"
)

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SyncProgress is the last committed position of one resource loop.
type SyncProgress struct {
	RunID       string    `json:"run_id"`
	Resource    string    `json:"resource"`
	Offset      int       `json:"offset"`
	Page        int       `json:"page"`
	TotalSynced int       `json:"total_synced"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProgressCache publishes sync progress for operators watching a run.
type ProgressCache interface {
	SetProgress(ctx context.Context, p SyncProgress) error
	GetProgress(ctx context.Context, resource string) (SyncProgress, error)
}

// ReportCache keeps the most recent violation report.
type ReportCache interface {
	SetReport(ctx context.Context, report Report) error
	GetReport(ctx context.Context) (Report, error)
}
