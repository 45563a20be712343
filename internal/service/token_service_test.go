package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opinionterm/opiniond/internal/cache/memory"
	"github.com/opinionterm/opiniond/internal/domain"
)

type stubBookFetcher struct {
	bookCalls  int
	priceCalls int
	book       domain.Orderbook
	price      domain.LatestPrice
	trades     domain.TradePage
}

func (s *stubBookFetcher) GetOrderbook(ctx context.Context, tokenID string) (domain.Orderbook, error) {
	s.bookCalls++
	b := s.book
	b.TokenID = tokenID
	b.UpdatedAt = time.Now()
	return b, nil
}

func (s *stubBookFetcher) GetPriceHistory(ctx context.Context, tokenID, interval string, startAt, endAt int64) (domain.PriceHistory, error) {
	return domain.PriceHistory{TokenID: tokenID, Interval: interval}, nil
}

func (s *stubBookFetcher) GetLatestPrice(ctx context.Context, tokenID string) (domain.LatestPrice, error) {
	s.priceCalls++
	return s.price, nil
}

func (s *stubBookFetcher) ListTrades(ctx context.Context, marketID int64, page, limit int) (domain.TradePage, error) {
	return s.trades, nil
}

func newTokenService(upstream *stubBookFetcher) *TokenService {
	ctx := context.Background()
	return NewTokenService(upstream, memory.NewBookCache(ctx), memory.NewPriceCache(ctx), testLogger())
}

func TestOrderbookRejectsInvalidToken(t *testing.T) {
	svc := newTokenService(&stubBookFetcher{})

	cases := map[string]string{
		"too short":  "abc123",
		"underscore": validToken("x") + "_suffix",
		"empty":      "",
	}
	for name, tokenID := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Orderbook(context.Background(), tokenID); !errors.Is(err, domain.ErrInvalidTokenID) {
				t.Errorf("error = %v, want ErrInvalidTokenID", err)
			}
		})
	}
}

func TestOrderbookServesFreshSnapshot(t *testing.T) {
	upstream := &stubBookFetcher{book: domain.Orderbook{BestBid: 0.4, BestAsk: 0.6}}
	svc := newTokenService(upstream)
	tokenID := validToken("tok")

	if _, err := svc.Orderbook(context.Background(), tokenID); err != nil {
		t.Fatalf("Orderbook: %v", err)
	}
	if _, err := svc.Orderbook(context.Background(), tokenID); err != nil {
		t.Fatalf("Orderbook (cached): %v", err)
	}
	if upstream.bookCalls != 1 {
		t.Errorf("upstream calls = %d, want 1 within staleness window", upstream.bookCalls)
	}
}

func TestOrderbookRefetchesStaleSnapshot(t *testing.T) {
	upstream := &stubBookFetcher{}
	books := memory.NewBookCache(context.Background())
	svc := NewTokenService(upstream, books, memory.NewPriceCache(context.Background()), testLogger())
	tokenID := validToken("tok")

	stale := domain.Orderbook{TokenID: tokenID, UpdatedAt: time.Now().Add(-2 * time.Second)}
	if err := books.SetSnapshot(context.Background(), tokenID, stale); err != nil {
		t.Fatalf("SetSnapshot: %v", err)
	}

	if _, err := svc.Orderbook(context.Background(), tokenID); err != nil {
		t.Fatalf("Orderbook: %v", err)
	}
	if upstream.bookCalls != 1 {
		t.Errorf("upstream calls = %d, want 1 for stale snapshot", upstream.bookCalls)
	}
}

func TestLatestPricePrefersCache(t *testing.T) {
	upstream := &stubBookFetcher{price: domain.LatestPrice{Price: 0.42}}
	svc := newTokenService(upstream)
	tokenID := validToken("tok")

	first, err := svc.LatestPrice(context.Background(), tokenID)
	if err != nil {
		t.Fatalf("LatestPrice: %v", err)
	}
	if first.Price != 0.42 || first.TokenID != tokenID {
		t.Fatalf("unexpected price: %+v", first)
	}

	if _, err := svc.LatestPrice(context.Background(), tokenID); err != nil {
		t.Fatalf("LatestPrice (cached): %v", err)
	}
	if upstream.priceCalls != 1 {
		t.Errorf("upstream calls = %d, want 1 after cache hit", upstream.priceCalls)
	}
}

func TestPriceHistoryRejectsInvalidToken(t *testing.T) {
	svc := newTokenService(&stubBookFetcher{})
	if _, err := svc.PriceHistory(context.Background(), "short", "1h", 0, 0); !errors.Is(err, domain.ErrInvalidTokenID) {
		t.Fatalf("error = %v, want ErrInvalidTokenID", err)
	}
}
