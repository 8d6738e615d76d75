package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/polycache/internal/blob/s3"
	"github.com/alanyoungcy/polycache/internal/cache/redis"
	"github.com/alanyoungcy/polycache/internal/config"
	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/alanyoungcy/polycache/internal/notify"
	"github.com/alanyoungcy/polycache/internal/platform/polymarket"
	"github.com/alanyoungcy/polycache/internal/store/postgres"
	"github.com/alanyoungcy/polycache/internal/store/sqlite"
)

// Dependencies bundles everything the commands need. Optional sinks are
// nil when their section of the configuration is disabled.
type Dependencies struct {
	// Local cache
	DB domain.Database

	// Provider clients
	Clob  *polymarket.ClobClient
	Gamma *polymarket.GammaClient

	// Redis
	LockManager   domain.LockManager
	ProgressCache domain.ProgressCache
	ReportCache   domain.ReportCache

	// Object storage
	Exporter *s3blob.Exporter

	// Relational mirror
	MarketMirror domain.CachedMarketStore

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Clob:  polymarket.NewClobClient(cfg.Polymarket.ClobHost),
		Gamma: polymarket.NewGammaClient(cfg.Polymarket.GammaHost),
	}

	// --- Local cache ---
	db, err := sqlite.Open(cfg.Cache.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: open cache: %w", err)
	}
	closers = append(closers, func() {
		if err := db.Close(); err != nil {
			logger.Warn("close cache failed", slog.String("error", err.Error()))
		}
	})
	deps.DB = db

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			URL:        cfg.Redis.URL,
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.LockManager = redis.NewLockManager(redisClient)
		deps.ProgressCache = redis.NewProgressCache(redisClient)
		deps.ReportCache = redis.NewReportCache(redisClient)
	}

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Exporter = s3blob.NewExporter(s3blob.NewWriter(s3Client, cfg.S3.Prefix), logger)
	}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		mirror, err := postgres.Connect(ctx, postgres.Config{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, mirror.Close)

		if cfg.Postgres.RunMigrations {
			if err := mirror.EnsureSchema(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres schema: %w", err)
			}
		}
		deps.MarketMirror = mirror.Markets()
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, cfg.Notify.DedupTTL.Duration, logger)

	return deps, cleanup, nil
}
