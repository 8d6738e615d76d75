package domain

import (
	"context"
	"fmt"
)

// Keyspace names one table of the local cache.
type Keyspace string

const (
	KeyspaceMarketResponses Keyspace = "market_responses"
	KeyspaceMarkets         Keyspace = "markets"
	KeyspaceOrderBooks      Keyspace = "order_book_summary_responses"
	KeyspaceGammaEvents     Keyspace = "gamma_events"

	// KeyspaceSkippedGammaEvents holds the ids of events the sync loop
	// fetched but did not keep. It only contributes to the event count
	// that resumption is derived from.
	KeyspaceSkippedGammaEvents Keyspace = "skipped_gamma_events"
)

// Keyspaces lists every keyspace in a fixed order.
func Keyspaces() []Keyspace {
	return []Keyspace{
		KeyspaceMarketResponses,
		KeyspaceMarkets,
		KeyspaceOrderBooks,
		KeyspaceGammaEvents,
	}
}

// StoreKeyspaces lists every table of the store, including the
// bookkeeping ones that hold no records.
func StoreKeyspaces() []Keyspace {
	return append(Keyspaces(), KeyspaceSkippedGammaEvents)
}

// ParseKeyspace validates a record keyspace name.
func ParseKeyspace(s string) (Keyspace, error) {
	return parseKeyspace(s, Keyspaces())
}

// ParseStoreKeyspace is ParseKeyspace over StoreKeyspaces.
func ParseStoreKeyspace(s string) (Keyspace, error) {
	return parseKeyspace(s, StoreKeyspaces())
}

func parseKeyspace(s string, known []Keyspace) (Keyspace, error) {
	for _, ks := range known {
		if string(ks) == s {
			return ks, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKeyspace, s)
}

// ListOpts provides pagination for keyspace scans. Limit <= 0 means no limit.
type ListOpts struct {
	Limit  int
	Offset int
}

// VisitFunc is called once per stored entry in key order. Returning an
// error stops the scan and the error is returned to the caller.
type VisitFunc func(key, value []byte) error

// Snapshot is a consistent read-only view of every keyspace.
type Snapshot interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, ks Keyspace, key []byte) ([]byte, error)
	Iterate(ctx context.Context, ks Keyspace, opts ListOpts, fn VisitFunc) error
	Len(ctx context.Context, ks Keyspace) (int, error)
	Close() error
}

// WriteTx is the single write transaction of the store. Inserts overwrite
// existing keys. Nothing is visible to readers before Commit.
type WriteTx interface {
	Insert(ctx context.Context, ks Keyspace, key, value []byte) error
	Commit() error
	Rollback() error
}

// Database is the embedded keyspace store.
type Database interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	// Begin blocks until no other write transaction is open.
	Begin(ctx context.Context) (WriteTx, error)
	// Persist flushes committed transactions to stable storage.
	Persist(ctx context.Context) error
	Len(ctx context.Context, ks Keyspace) (int, error)
	Close() error
}

// CachedMarketStore mirrors derived markets into a relational database.
type CachedMarketStore interface {
	UpsertBatch(ctx context.Context, markets []Market) error
	Count(ctx context.Context) (int64, error)
}
