package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func insertAll(t *testing.T, db *DB, ks domain.Keyspace, kv map[string]string) {
	t.Helper()
	ctx := context.Background()
	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()
	for k, v := range kv {
		require.NoError(t, tx.Insert(ctx, ks, []byte(k), []byte(v)))
	}
	require.NoError(t, tx.Commit())
	require.NoError(t, db.Persist(ctx))
}

func TestOpenCreatesKeyspaces(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	for _, ks := range domain.StoreKeyspaces() {
		n, err := db.Len(ctx, ks)
		require.NoError(t, err, ks)
		assert.Zero(t, n)
	}
	_, err := db.Len(ctx, domain.Keyspace("nope"))
	assert.ErrorIs(t, err, domain.ErrUnknownKeyspace)
}

func TestInsertOverwrites(t *testing.T) {
	db := createTestDB(t)
	insertAll(t, db, domain.KeyspaceMarkets, map[string]string{"a": "1", "b": "2"})
	insertAll(t, db, domain.KeyspaceMarkets, map[string]string{"a": "3"})

	snap, err := db.Snapshot(context.Background())
	require.NoError(t, err)
	defer snap.Close()

	n, err := snap.Len(context.Background(), domain.KeyspaceMarkets)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v, err := snap.Get(context.Background(), domain.KeyspaceMarkets, []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, "3", string(v))

	_, err = snap.Get(context.Background(), domain.KeyspaceMarkets, []byte("zz"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRollbackDiscards(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, domain.KeyspaceMarkets, []byte("a"), []byte("1")))
	require.NoError(t, tx.Rollback())

	n, err := db.Len(ctx, domain.KeyspaceMarkets)
	require.NoError(t, err)
	assert.Zero(t, n)

	// The writer is free again.
	insertAll(t, db, domain.KeyspaceMarkets, map[string]string{"b": "2"})
}

func TestIterateOrderAndPaging(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	for _, id := range []domain.EventID{300, 2, 70000, 41} {
		require.NoError(t, tx.Insert(ctx, domain.KeyspaceGammaEvents, domain.EventKey(id), []byte(fmt.Sprint(id))))
	}
	require.NoError(t, tx.Commit())

	snap, err := db.Snapshot(ctx)
	require.NoError(t, err)
	defer snap.Close()

	collect := func(opts domain.ListOpts) []string {
		var out []string
		err := snap.Iterate(ctx, domain.KeyspaceGammaEvents, opts, func(_, value []byte) error {
			out = append(out, string(value))
			return nil
		})
		require.NoError(t, err)
		return out
	}
	assert.Equal(t, []string{"2", "41", "300", "70000"}, collect(domain.ListOpts{}))
	assert.Equal(t, []string{"41", "300"}, collect(domain.ListOpts{Offset: 1, Limit: 2}))
	assert.Empty(t, collect(domain.ListOpts{Offset: 10}))

	stop := fmt.Errorf("stop")
	visited := 0
	err = snap.Iterate(ctx, domain.KeyspaceGammaEvents, domain.ListOpts{}, func(_, _ []byte) error {
		visited++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, visited)
}

func TestSnapshotIsolation(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()
	insertAll(t, db, domain.KeyspaceMarkets, map[string]string{"a": "1"})

	snap, err := db.Snapshot(ctx)
	require.NoError(t, err)
	defer snap.Close()

	insertAll(t, db, domain.KeyspaceMarkets, map[string]string{"b": "2"})

	n, err := snap.Len(ctx, domain.KeyspaceMarkets)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "snapshot must not observe later commits")

	n, err = db.Len(ctx, domain.KeyspaceMarkets)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSingleWriter(t *testing.T) {
	db := createTestDB(t)
	ctx := context.Background()

	first, err := db.Begin(ctx)
	require.NoError(t, err)

	acquired := make(chan domain.WriteTx)
	go func() {
		tx, err := db.Begin(ctx)
		if err != nil {
			close(acquired)
			return
		}
		acquired <- tx
	}()

	select {
	case <-acquired:
		t.Fatal("second writer acquired the store while the first was open")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, first.Commit())
	second, ok := <-acquired
	require.True(t, ok)
	require.NoError(t, second.Rollback())
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	require.NoError(t, err)
	insertAll(t, db, domain.KeyspaceOrderBooks, map[string]string{"k": "v"})
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()
	n, err := db.Len(context.Background(), domain.KeyspaceOrderBooks)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
