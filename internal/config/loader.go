package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POLYCACHE_* environment variable overrides, and
// returns the final Config. A missing file is not an error. The returned
// Config has NOT been validated; the caller should invoke Config.Validate()
// after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYCACHE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "POLYCACHE_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.GammaHost, "POLYCACHE_POLYMARKET_GAMMA_HOST")

	// ── Cache ──
	setStr(&cfg.Cache.Dir, "POLYCACHE_CACHE_DIR")

	// ── Sync ──
	setInt(&cfg.Sync.PageLimit, "POLYCACHE_SYNC_PAGE_LIMIT")
	setInt(&cfg.Sync.OrderBookChunkSize, "POLYCACHE_SYNC_ORDER_BOOK_CHUNK_SIZE")
	setInt(&cfg.Sync.EventsPageSize, "POLYCACHE_SYNC_EVENTS_PAGE_SIZE")
	setDuration(&cfg.Sync.RefreshInterval, "POLYCACHE_SYNC_REFRESH_INTERVAL")
	setInt(&cfg.Sync.MaxIterations, "POLYCACHE_SYNC_MAX_ITERATIONS")
	setDuration(&cfg.Sync.LockTTL, "POLYCACHE_SYNC_LOCK_TTL")

	// ── Check ──
	setInt(&cfg.Check.ExampleLimit, "POLYCACHE_CHECK_EXAMPLE_LIMIT")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "POLYCACHE_REDIS_ENABLED")
	setStr(&cfg.Redis.URL, "POLYCACHE_REDIS_URL")
	setStr(&cfg.Redis.Addr, "POLYCACHE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYCACHE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYCACHE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYCACHE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POLYCACHE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POLYCACHE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "POLYCACHE_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "POLYCACHE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POLYCACHE_S3_REGION")
	setStr(&cfg.S3.Bucket, "POLYCACHE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POLYCACHE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POLYCACHE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "POLYCACHE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "POLYCACHE_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "POLYCACHE_S3_PREFIX")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "POLYCACHE_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "POLYCACHE_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "POLYCACHE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POLYCACHE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POLYCACHE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POLYCACHE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POLYCACHE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "POLYCACHE_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "POLYCACHE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "POLYCACHE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POLYCACHE_POSTGRES_RUN_MIGRATIONS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "POLYCACHE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "POLYCACHE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "POLYCACHE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "POLYCACHE_NOTIFY_EVENTS")
	setDuration(&cfg.Notify.DedupTTL, "POLYCACHE_NOTIFY_DEDUP_TTL")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "POLYCACHE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
