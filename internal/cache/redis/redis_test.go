package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient connects to the server named by POLYCACHE_TEST_REDIS_ADDR and
// flushes the selected database around the test.
func testClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("POLYCACHE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("POLYCACHE_TEST_REDIS_ADDR not set")
	}
	c, err := New(context.Background(), ClientConfig{Addr: addr, DB: 15, PoolSize: 2})
	require.NoError(t, err)
	require.NoError(t, c.Underlying().FlushDB(context.Background()).Err())
	t.Cleanup(func() {
		_ = c.Underlying().FlushDB(context.Background()).Err()
		_ = c.Close()
	})
	return c
}

func TestLockManager(t *testing.T) {
	lm := NewLockManager(testClient(t))
	ctx := context.Background()

	unlock, err := lm.Acquire(ctx, "writer", time.Minute)
	require.NoError(t, err)

	_, err = lm.Acquire(ctx, "writer", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	unlock()
	unlock()

	unlock2, err := lm.Acquire(ctx, "writer", time.Minute)
	require.NoError(t, err)
	unlock2()
}

func TestProgressCache(t *testing.T) {
	pc := NewProgressCache(testClient(t))
	ctx := context.Background()

	_, err := pc.GetProgress(ctx, "markets")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	want := domain.SyncProgress{
		RunID:       "run-1",
		Resource:    "markets",
		Offset:      1000,
		Page:        2,
		TotalSynced: 1000,
		UpdatedAt:   time.Date(2025, 3, 1, 12, 0, 0, 5, time.UTC),
	}
	require.NoError(t, pc.SetProgress(ctx, want))
	got, err := pc.GetProgress(ctx, "markets")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReportCache(t *testing.T) {
	rc := NewReportCache(testClient(t))
	ctx := context.Background()

	_, err := rc.GetReport(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	want := domain.Report{"ActiveXorClosed": {Count: 3, Examples: []string{"a", "b"}}}
	require.NoError(t, rc.SetReport(ctx, want))
	got, err := rc.GetReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestClientConfigOptions(t *testing.T) {
	opts, err := ClientConfig{URL: "redis://:pw@cache:6380/3", PoolSize: 4, MaxRetries: 1}.options()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 4, opts.PoolSize)

	opts, err = ClientConfig{Addr: "localhost:6379", TLSEnabled: true}.options()
	require.NoError(t, err)
	assert.NotNil(t, opts.TLSConfig)

	_, err = ClientConfig{URL: "http://nope"}.options()
	assert.Error(t, err)
}
