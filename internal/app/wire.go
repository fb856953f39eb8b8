package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/stakerise/internal/blob/s3"
	"github.com/alanyoungcy/stakerise/internal/cache/redis"
	"github.com/alanyoungcy/stakerise/internal/catalog"
	"github.com/alanyoungcy/stakerise/internal/chain"
	"github.com/alanyoungcy/stakerise/internal/config"
	"github.com/alanyoungcy/stakerise/internal/domain"
	"github.com/alanyoungcy/stakerise/internal/server/handler"
	"github.com/alanyoungcy/stakerise/internal/store/postgres"
)

// Dependencies bundles every concrete dependency the modes need. It is built
// by Wire and released by the cleanup function Wire returns.
type Dependencies struct {
	Catalog *catalog.Catalog

	// Stores
	StakeStore    domain.StakeStore
	ActivityStore domain.ActivityStore

	// Caches
	ProjectionCache domain.ProjectionCache // nil when projection caching is off
	RateLimiter     domain.RateLimiter
	LockManager     domain.LockManager
	SignalBus       domain.SignalBus

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   *s3blob.ActivityArchiver

	// Chain is nil in server mode when no RPC endpoint is configured.
	Chain *chain.Client

	// Checks probe each backing service for the health endpoint.
	Checks map[string]handler.HealthCheck
}

// needsChain reports whether the chain client must be dialled. Server mode
// dials only when an endpoint is configured, for balance checks and pool
// statistics.
func needsChain(cfg *config.Config) bool {
	return cfg.NeedsChain() || cfg.Chain.RPCURL != ""
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
	fail := func(what string, err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, fmt.Errorf("wire: %s: %w", what, err)
	}

	cat, err := cfg.Tiers()
	if err != nil {
		return fail("catalog", err)
	}
	deps := &Dependencies{
		Catalog: cat,
		Checks:  make(map[string]handler.HealthCheck),
	}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Supabase.DSN,
		Host:     cfg.Supabase.Host,
		Port:     cfg.Supabase.Port,
		Database: cfg.Supabase.Database,
		User:     cfg.Supabase.User,
		Password: cfg.Supabase.Password,
		SSLMode:  cfg.Supabase.SSLMode,
		MaxConns: cfg.Supabase.PoolMaxConns,
		MinConns: cfg.Supabase.PoolMinConns,
	})
	if err != nil {
		return fail("postgres", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Supabase.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			return fail("postgres migrations", err)
		}
	}

	pool := pgClient.Pool()
	deps.StakeStore = postgres.NewStakeStore(pool)
	deps.ActivityStore = postgres.NewActivityStore(pool)
	deps.Checks["postgres"] = pgClient.Ping

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		return fail("redis", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	if cfg.Projection.CacheEnabled {
		deps.ProjectionCache = redis.NewProjectionCache(redisClient, cfg.Redis.CacheTTL.Duration)
	}
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.Checks["redis"] = redisClient.Ping

	// --- S3 blob storage ---
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
		return fail("s3", err)
	}
	closers = append(closers, func() { _ = s3Client.Close() })

	deps.BlobWriter = s3blob.NewWriter(s3Client)
	deps.BlobReader = s3blob.NewReader(s3Client)
	deps.Archiver = s3blob.NewActivityArchiver(deps.BlobWriter, deps.ActivityStore)
	deps.Checks["s3"] = s3Client.Health

	// --- Chain ---
	if needsChain(cfg) {
		client, err := chain.Dial(ctx, chain.ClientConfig{
			RPCURL:          cfg.Chain.RPCURL,
			ChainID:         cfg.Chain.ChainID,
			StakingContract: cfg.Chain.StakingContract,
			Tokens:          cfg.Chain.Tokens,
			CallTimeout:     cfg.Chain.CallTimeout.Duration,
		}, cat)
		if err != nil {
			return fail("chain", err)
		}
		closers = append(closers, client.Close)
		deps.Chain = client
	}

	logger.InfoContext(ctx, "dependencies wired",
		slog.Bool("chain", deps.Chain != nil),
		slog.Bool("projection_cache", deps.ProjectionCache != nil),
		slog.Int("assets", len(cat.Assets())),
	)
	return deps, cleanup, nil
}
