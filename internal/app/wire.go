package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/opinionterm/opiniond/internal/blob/s3"
	"github.com/opinionterm/opiniond/internal/cache/memory"
	"github.com/opinionterm/opiniond/internal/cache/redis"
	"github.com/opinionterm/opiniond/internal/catalog"
	"github.com/opinionterm/opiniond/internal/config"
	"github.com/opinionterm/opiniond/internal/domain"
	"github.com/opinionterm/opiniond/internal/enrich"
	"github.com/opinionterm/opiniond/internal/platform/opinion"
	"github.com/opinionterm/opiniond/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Upstream API access.
	Upstream *opinion.Client
	Enricher *enrich.Enricher
	Catalog  *catalog.Catalog

	// Caches. Backed by Redis when enabled, in-process otherwise.
	MarketCache  domain.MarketCache
	BookCache    domain.OrderbookCache
	PriceCache   domain.PriceCache
	CatalogCache domain.CatalogCache

	// Persistence. Nil outside refresh and full modes.
	MarketStore domain.MarketStore

	// Blob storage. Nil when s3 is disabled.
	BlobWriter domain.BlobWriter
}

// needsPostgres returns true for modes that persist the catalog.
func needsPostgres(mode string) bool {
	switch mode {
	case "refresh", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Upstream client ---
	deps.Upstream = opinion.NewClient(opinion.Config{
		BaseURL: cfg.Opinion.BaseURL,
		APIKey:  cfg.Opinion.ApiKey,
		ChainID: cfg.Opinion.ChainID,
		SortBy:  cfg.Opinion.SortBy,
		Timeout: cfg.Opinion.Timeout.Duration,
	}, logger)

	deps.Enricher = enrich.New(deps.Upstream, cfg.Opinion.BatchSize, logger)

	// --- Caches: Redis when enabled, in-process fallback otherwise ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
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

		deps.MarketCache = redis.NewMarketCache(redisClient)
		deps.BookCache = redis.NewBookCache(redisClient)
		deps.PriceCache = redis.NewPriceCache(redisClient)
		deps.CatalogCache = redis.NewCatalogCache(redisClient)
	} else {
		deps.MarketCache = memory.NewMarketCache(ctx)
		deps.BookCache = memory.NewBookCache(ctx)
		deps.PriceCache = memory.NewPriceCache(ctx)
		deps.CatalogCache = memory.NewCatalogCache(ctx)
	}

	// --- Catalog walker ---
	catCfg := catalog.Defaults()
	catCfg.PageSize = cfg.Opinion.PageSize
	catCfg.MaxPages = cfg.Opinion.CatalogMaxPages
	catCfg.Status = cfg.Opinion.Status
	deps.Catalog = catalog.New(deps.Upstream, deps.CatalogCache, catCfg, logger)

	// --- PostgreSQL (only for modes that need persistence) ---
	if needsPostgres(cfg.Mode) {
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
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Supabase.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.MarketStore = postgres.NewMarketStore(pgClient.Pool())
	}

	// --- S3 blob storage (optional, for catalog archiving) ---
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

		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	return deps, cleanup, nil
}
