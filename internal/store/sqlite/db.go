// Package sqlite implements the domain keyspace store on an embedded SQLite
// database via go-sqlite3. Each keyspace is one table of (key, value) blobs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alanyoungcy/polycache/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

// FileName is the database file inside the cache directory.
const FileName = "cache.db"

// DB is a domain.Database backed by SQLite in WAL mode. Writes go through a
// single connection guarded by a mutex; snapshots use a separate read-only
// pool so readers never wait on the writer.
type DB struct {
	path   string
	writer *sql.DB
	reader *sql.DB
	// writeMu is held from Begin until Commit or Rollback.
	writeMu sync.Mutex
}

var _ domain.Database = (*DB)(nil)

// Open creates dir if needed and opens (or creates) the database inside it.
// Tables for every keyspace are created on first use.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: create dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, FileName)

	writer, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// SQLite only supports one writer at a time.
	writer.SetMaxOpenConns(1)
	writer.SetMaxIdleConns(1)

	if err := writer.Ping(); err != nil {
		writer.Close()
		return nil, fmt.Errorf("sqlite: connect %s: %w", path, err)
	}
	if err := applyPragmas(writer); err != nil {
		writer.Close()
		return nil, err
	}
	if err := applySchema(writer); err != nil {
		writer.Close()
		return nil, err
	}

	reader, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", path))
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("sqlite: open reader %s: %w", path, err)
	}

	return &DB{path: path, writer: writer, reader: reader}, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	for _, ks := range domain.StoreKeyspaces() {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
			key   BLOB PRIMARY KEY,
			value BLOB NOT NULL
		) WITHOUT ROWID`, string(ks))
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlite: create keyspace %s: %w", ks, err)
		}
	}
	return nil
}

// table returns the quoted table name of a keyspace, rejecting names that
// are not part of the schema.
func table(ks domain.Keyspace) (string, error) {
	if _, err := domain.ParseStoreKeyspace(string(ks)); err != nil {
		return "", err
	}
	return fmt.Sprintf("%q", string(ks)), nil
}

// Snapshot opens a read transaction. Everything committed before the call
// is visible through it; nothing committed afterwards is.
func (db *DB) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	tx, err := db.reader.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin snapshot: %w", err)
	}
	// A deferred transaction takes its read mark on first access.
	var n int
	if err := tx.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("sqlite: pin snapshot: %w", err)
	}
	return &snapshot{tx: tx}, nil
}

// Begin blocks until the previous write transaction has finished.
func (db *DB) Begin(ctx context.Context) (domain.WriteTx, error) {
	db.writeMu.Lock()
	tx, err := db.writer.BeginTx(ctx, nil)
	if err != nil {
		db.writeMu.Unlock()
		return nil, fmt.Errorf("sqlite: begin write: %w", err)
	}
	return &writeTx{tx: tx, release: db.writeMu.Unlock}, nil
}

// Persist checkpoints the write-ahead log into the main database file.
// Commits are already synced to the log (synchronous = FULL), so a
// checkpoint that cannot finish because a snapshot still pins older frames
// is not an error; the remaining frames are copied by a later call.
func (db *DB) Persist(ctx context.Context) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	var busy, logFrames, checkpointed int
	err := db.writer.QueryRowContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &logFrames, &checkpointed)
	if err != nil {
		return fmt.Errorf("sqlite: persist: %w", err)
	}
	return nil
}

// Len counts the entries of a keyspace outside of any snapshot.
func (db *DB) Len(ctx context.Context, ks domain.Keyspace) (int, error) {
	return count(ctx, db.reader, ks)
}

// Close closes both connection pools.
func (db *DB) Close() error {
	return errors.Join(db.reader.Close(), db.writer.Close())
}

// --------------------------------------------------------------------------
// Snapshot
// --------------------------------------------------------------------------

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type snapshot struct {
	tx *sql.Tx
}

func (s *snapshot) Get(ctx context.Context, ks domain.Keyspace, key []byte) ([]byte, error) {
	tbl, err := table(ks)
	if err != nil {
		return nil, err
	}
	var value []byte
	err = s.tx.QueryRowContext(ctx, "SELECT value FROM "+tbl+" WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: get %s/%x: %w", ks, key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get %s/%x: %w", ks, key, err)
	}
	return value, nil
}

func (s *snapshot) Iterate(ctx context.Context, ks domain.Keyspace, opts domain.ListOpts, fn domain.VisitFunc) error {
	tbl, err := table(ks)
	if err != nil {
		return err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := max(opts.Offset, 0)

	rows, err := s.tx.QueryContext(ctx,
		"SELECT key, value FROM "+tbl+" ORDER BY key LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return fmt.Errorf("sqlite: iterate %s: %w", ks, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("sqlite: iterate %s: scan: %w", ks, err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterate %s: %w", ks, err)
	}
	return nil
}

func (s *snapshot) Len(ctx context.Context, ks domain.Keyspace) (int, error) {
	return count(ctx, s.tx, ks)
}

func (s *snapshot) Close() error {
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("sqlite: close snapshot: %w", err)
	}
	return nil
}

func count(ctx context.Context, q querier, ks domain.Keyspace) (int, error) {
	tbl, err := table(ks)
	if err != nil {
		return 0, err
	}
	var n int
	if err := q.QueryRowContext(ctx, "SELECT count(*) FROM "+tbl).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count %s: %w", ks, err)
	}
	return n, nil
}

// --------------------------------------------------------------------------
// Write transaction
// --------------------------------------------------------------------------

type writeTx struct {
	tx      *sql.Tx
	release func()
	once    sync.Once
}

func (w *writeTx) Insert(ctx context.Context, ks domain.Keyspace, key, value []byte) error {
	tbl, err := table(ks)
	if err != nil {
		return err
	}
	_, err = w.tx.ExecContext(ctx,
		"INSERT INTO "+tbl+" (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("sqlite: insert %s/%x: %w", ks, key, err)
	}
	return nil
}

func (w *writeTx) Commit() error {
	defer w.done()
	if err := w.tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Rollback is a no-op after Commit, so it can be deferred.
func (w *writeTx) Rollback() error {
	defer w.done()
	if err := w.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("sqlite: rollback: %w", err)
	}
	return nil
}

func (w *writeTx) done() {
	w.once.Do(w.release)
}
