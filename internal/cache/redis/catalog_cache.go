package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opinionterm/opiniond/internal/domain"
)

// The catalog is evicted after half an hour regardless of use; freshness
// within that window is the caller's policy.
const catalogTTL = 30 * time.Minute

const (
	catalogKey          = "opinion:catalog"
	catalogFetchedAtKey = "opinion:catalog:fetched_at"
)

// CatalogCache implements domain.CatalogCache with one JSON blob holding the
// whole deduplicated market list, plus a companion key recording when the
// snapshot was assembled.
type CatalogCache struct {
	rdb *redis.Client
}

// NewCatalogCache creates a CatalogCache backed by the given Client.
func NewCatalogCache(c *Client) *CatalogCache {
	return &CatalogCache{rdb: c.Underlying()}
}

// Put stores the catalog snapshot and its assembly time.
func (cc *CatalogCache) Put(ctx context.Context, markets []domain.Market, fetchedAt time.Time) error {
	data, err := json.Marshal(markets)
	if err != nil {
		return fmt.Errorf("redis: marshal catalog: %w", err)
	}

	pipe := cc.rdb.TxPipeline()
	pipe.Set(ctx, catalogKey, data, catalogTTL)
	pipe.Set(ctx, catalogFetchedAtKey, strconv.FormatInt(fetchedAt.UnixNano(), 10), catalogTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: put catalog: %w", err)
	}
	return nil
}

// Get retrieves the catalog snapshot and its assembly time.
// It returns domain.ErrNotFound when no snapshot is cached.
func (cc *CatalogCache) Get(ctx context.Context) ([]domain.Market, time.Time, error) {
	data, err := cc.rdb.Get(ctx, catalogKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, time.Time{}, domain.ErrNotFound
		}
		return nil, time.Time{}, fmt.Errorf("redis: get catalog: %w", err)
	}

	var markets []domain.Market
	if err := json.Unmarshal(data, &markets); err != nil {
		return nil, time.Time{}, fmt.Errorf("redis: unmarshal catalog: %w", err)
	}

	fetchedAt := time.Time{}
	if raw, err := cc.rdb.Get(ctx, catalogFetchedAtKey).Result(); err == nil {
		if nano, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			fetchedAt = time.Unix(0, nano)
		}
	}

	return markets, fetchedAt, nil
}

// Compile-time interface check.
var _ domain.CatalogCache = (*CatalogCache)(nil)
