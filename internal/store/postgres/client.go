// Package postgres mirrors derived markets into PostgreSQL via pgx.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaSQL creates the cached_markets table and its indexes. Every statement
// is IF NOT EXISTS, so applying it on each start is safe.
//
//go:embed migrations/001_cached_markets.sql
var schemaSQL string

// Config holds the connection parameters of the market mirror. A non-empty
// DSN wins over the individual fields.
type Config struct {
	DSN      string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	MaxConns int
	MinConns int
}

// ConnString returns the connection string for cfg. Credentials are escaped.
func ConnString(cfg Config) string {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + strconv.Itoa(port),
		Path:     "/" + cfg.Database,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

// Mirror owns the pool behind the cached_markets mirror.
type Mirror struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for cfg and checks it with a ping.
func Connect(ctx context.Context, cfg Config) (*Mirror, error) {
	poolCfg, err := pgxpool.ParseConfig(ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Mirror{pool: pool}, nil
}

// EnsureSchema creates the cached_markets table if it is missing.
func (m *Mirror) EnsureSchema(ctx context.Context) error {
	if _, err := m.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres: ensure cached_markets schema: %w", err)
	}
	return nil
}

// Markets returns the upsert store for derived markets.
func (m *Mirror) Markets() *CachedMarketStore {
	return NewCachedMarketStore(m.pool)
}

// Close shuts down the pool.
func (m *Mirror) Close() {
	m.pool.Close()
}
