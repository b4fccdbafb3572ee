package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/nereus-labs/nereus/internal/blob/s3"
	"github.com/nereus-labs/nereus/internal/cache/redis"
	"github.com/nereus-labs/nereus/internal/config"
	"github.com/nereus-labs/nereus/internal/domain"
	"github.com/nereus-labs/nereus/internal/metrics"
	"github.com/nereus-labs/nereus/internal/platform/chain"
	"github.com/nereus-labs/nereus/internal/platform/walrus"
	"github.com/nereus-labs/nereus/internal/store/memory"
	"github.com/nereus-labs/nereus/internal/store/postgres"
	"github.com/nereus-labs/nereus/internal/sui"
	"github.com/nereus-labs/nereus/internal/txbuilder"
)

// Dependencies bundles every concrete dependency the application modes need.
// It is constructed by Wire and torn down by the returned cleanup function.
// Optional collaborators are left as nil interfaces when their backend is
// disabled.
type Dependencies struct {
	// Upstreams
	Chain   *chain.Client
	Builder *txbuilder.Builder
	Walrus  *walrus.Client

	// Stores
	ChatStore    domain.ChatStore
	PriceHistory domain.PriceHistoryStore

	// Caches
	MarketCache domain.MarketCache
	TxCache     domain.TxCache
	RateLimiter domain.RateLimiter
	Locker      domain.Locker
	SignalBus   domain.SignalBus

	// Blob storage
	Archiver domain.MarketArchiver

	Metrics *metrics.Metrics
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
		Metrics: metrics.New(cfg.Metrics.Namespace),
	}

	// --- Chain ---
	chainClient, err := chain.NewClient(chain.Config{
		GraphQLURL:    cfg.Chain.GraphQLURL,
		RPCURL:        cfg.Chain.RPCURL,
		PackageID:     cfg.Chain.PackageID,
		USDCType:      cfg.Chain.USDCType,
		InspectSender: cfg.Chain.InspectSender,
		Timeout:       cfg.Chain.Timeout.Duration,
		PageSize:      cfg.Chain.PageSize,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: chain: %w", err)
	}
	deps.Chain = chainClient

	pkg, err := sui.ParseAddress(cfg.Chain.PackageID)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: package id: %w", err)
	}
	deps.Builder = txbuilder.New(pkg)

	if cfg.Walrus.AggregatorURL != "" {
		deps.Walrus = walrus.NewClient(cfg.Walrus.AggregatorURL, cfg.Walrus.Network, cfg.Walrus.Timeout.Duration)
	}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
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
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.PriceHistory = postgres.NewPriceHistoryStore(pool)
		if cfg.Chat.Store == "postgres" {
			deps.ChatStore = postgres.NewChatStore(pool)
		}
		logger.InfoContext(ctx, "postgres connected", slog.Bool("migrations", cfg.Postgres.RunMigrations))
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.MarketCache = redis.NewMarketCache(redisClient, cfg.Aggregator.CacheTTL.Duration)
		deps.TxCache = redis.NewTxCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.Locker = redis.NewLocker(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		if cfg.Chat.Store == "redis" {
			deps.ChatStore = redis.NewChatStore(redisClient)
		}
		logger.InfoContext(ctx, "redis connected", slog.String("addr", cfg.Redis.Addr))
	}

	// In-process fallbacks keep a single replica fully functional without
	// Redis.
	if deps.ChatStore == nil {
		deps.ChatStore = memory.NewChatStore()
	}
	if deps.TxCache == nil {
		deps.TxCache = memory.NewTxCache()
	}

	// --- S3 market archive ---
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
		if err := s3Client.Health(ctx); err != nil {
			logger.WarnContext(ctx, "s3 bucket not reachable, archive writes may fail",
				slog.String("bucket", cfg.S3.Bucket),
				slog.String("error", err.Error()),
			)
		}
		deps.Archiver = s3blob.NewMarketArchiver(s3blob.NewWriter(s3Client), cfg.S3.Prefix)
	}

	return deps, cleanup, nil
}
