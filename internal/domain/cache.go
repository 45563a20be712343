package domain

import (
	"context"
	"time"
)

// MarketCache provides fast market metadata lookups.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, id int64) (Market, error)
	GetByToken(ctx context.Context, tokenID string) (Market, error)
	Invalidate(ctx context.Context, id int64) error
}

// OrderbookCache stores short-lived orderbook snapshots. Snapshots are
// replaced wholesale on every write; there are no incremental updates.
type OrderbookCache interface {
	SetSnapshot(ctx context.Context, tokenID string, book Orderbook) error
	GetSnapshot(ctx context.Context, tokenID string) (Orderbook, error)
}

// PriceCache provides fast access to latest token prices.
type PriceCache interface {
	SetPrice(ctx context.Context, tokenID string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, tokenID string) (float64, time.Time, error)
}

// CatalogCache holds the full deduplicated market catalog together with the
// time it was assembled, so callers can apply their own freshness policy.
// Get returns ErrNotFound when no catalog is cached.
type CatalogCache interface {
	Put(ctx context.Context, markets []Market, fetchedAt time.Time) error
	Get(ctx context.Context) ([]Market, time.Time, error)
}
