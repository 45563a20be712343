package memory

import (
	"context"
	"strconv"
	"time"

	"github.com/opinionterm/opiniond/internal/domain"
)

const (
	marketTTL  = 5 * time.Minute
	bookTTL    = 5 * time.Second
	priceTTL   = 30 * time.Second
	catalogTTL = 30 * time.Minute

	gcInterval = time.Minute
)

// MarketCache is the in-process counterpart of the Redis market cache,
// including the token-to-market index.
type MarketCache struct {
	byID    *store[domain.Market]
	byToken *store[int64]
}

// NewMarketCache creates a MarketCache and starts its GC, which stops when
// ctx is done.
func NewMarketCache(ctx context.Context) *MarketCache {
	mc := &MarketCache{
		byID:    newStore[domain.Market](marketTTL),
		byToken: newStore[int64](marketTTL),
	}
	go mc.byID.runGC(ctx, gcInterval)
	go mc.byToken.runGC(ctx, gcInterval)
	return mc
}

func (mc *MarketCache) Set(ctx context.Context, market domain.Market) error {
	mc.byID.set(strconv.FormatInt(market.ID, 10), market)
	for _, tokenID := range []string{market.YesTokenID, market.NoTokenID} {
		if tokenID == "" {
			continue
		}
		mc.byToken.set(tokenID, market.ID)
	}
	return nil
}

func (mc *MarketCache) Get(ctx context.Context, id int64) (domain.Market, error) {
	m, ok := mc.byID.get(strconv.FormatInt(id, 10))
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (mc *MarketCache) GetByToken(ctx context.Context, tokenID string) (domain.Market, error) {
	id, ok := mc.byToken.get(tokenID)
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return mc.Get(ctx, id)
}

func (mc *MarketCache) Invalidate(ctx context.Context, id int64) error {
	if m, err := mc.Get(ctx, id); err == nil {
		for _, tokenID := range []string{m.YesTokenID, m.NoTokenID} {
			if tokenID != "" {
				mc.byToken.delete(tokenID)
			}
		}
	}
	mc.byID.delete(strconv.FormatInt(id, 10))
	return nil
}

// BookCache holds short-lived orderbook snapshots.
type BookCache struct {
	books *store[domain.Orderbook]
}

func NewBookCache(ctx context.Context) *BookCache {
	bc := &BookCache{books: newStore[domain.Orderbook](bookTTL)}
	go bc.books.runGC(ctx, gcInterval)
	return bc
}

func (bc *BookCache) SetSnapshot(ctx context.Context, tokenID string, book domain.Orderbook) error {
	bc.books.set(tokenID, book)
	return nil
}

func (bc *BookCache) GetSnapshot(ctx context.Context, tokenID string) (domain.Orderbook, error) {
	book, ok := bc.books.get(tokenID)
	if !ok {
		return domain.Orderbook{}, domain.ErrNotFound
	}
	return book, nil
}

// PriceCache holds latest token prices.
type PriceCache struct {
	prices *store[pricePoint]
}

type pricePoint struct {
	price float64
	ts    time.Time
}

func NewPriceCache(ctx context.Context) *PriceCache {
	pc := &PriceCache{prices: newStore[pricePoint](priceTTL)}
	go pc.prices.runGC(ctx, gcInterval)
	return pc
}

func (pc *PriceCache) SetPrice(ctx context.Context, tokenID string, price float64, ts time.Time) error {
	pc.prices.set(tokenID, pricePoint{price: price, ts: ts})
	return nil
}

func (pc *PriceCache) GetPrice(ctx context.Context, tokenID string) (float64, time.Time, error) {
	p, ok := pc.prices.get(tokenID)
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return p.price, p.ts, nil
}

// CatalogCache holds the full market catalog snapshot, evicted after 30
// minutes of disuse regardless of freshness.
type CatalogCache struct {
	snap *store[catalogSnapshot]
}

type catalogSnapshot struct {
	markets   []domain.Market
	fetchedAt time.Time
}

const catalogSnapKey = "catalog"

func NewCatalogCache(ctx context.Context) *CatalogCache {
	cc := &CatalogCache{snap: newStore[catalogSnapshot](catalogTTL)}
	go cc.snap.runGC(ctx, gcInterval)
	return cc
}

func (cc *CatalogCache) Put(ctx context.Context, markets []domain.Market, fetchedAt time.Time) error {
	cc.snap.set(catalogSnapKey, catalogSnapshot{markets: markets, fetchedAt: fetchedAt})
	return nil
}

func (cc *CatalogCache) Get(ctx context.Context) ([]domain.Market, time.Time, error) {
	s, ok := cc.snap.get(catalogSnapKey)
	if !ok {
		return nil, time.Time{}, domain.ErrNotFound
	}
	return s.markets, s.fetchedAt, nil
}

// Compile-time interface checks.
var (
	_ domain.MarketCache    = (*MarketCache)(nil)
	_ domain.OrderbookCache = (*BookCache)(nil)
	_ domain.PriceCache     = (*PriceCache)(nil)
	_ domain.CatalogCache   = (*CatalogCache)(nil)
)
