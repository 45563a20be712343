package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opinionterm/opiniond/internal/domain"
)

// BookFetcher is the slice of the API client the token service needs.
type BookFetcher interface {
	GetOrderbook(ctx context.Context, tokenID string) (domain.Orderbook, error)
	GetPriceHistory(ctx context.Context, tokenID, interval string, startAt, endAt int64) (domain.PriceHistory, error)
	GetLatestPrice(ctx context.Context, tokenID string) (domain.LatestPrice, error)
	ListTrades(ctx context.Context, marketID int64, page, limit int) (domain.TradePage, error)
}

// Snapshots older than this are refetched rather than served.
const bookStaleAfter = time.Second

// TokenService serves per-token market data: orderbooks, price history, and
// latest prices. Every entry point rejects malformed token IDs up front so
// garbage never reaches the upstream.
type TokenService struct {
	upstream BookFetcher
	books    domain.OrderbookCache
	prices   domain.PriceCache
	logger   *slog.Logger
}

// NewTokenService creates a TokenService with all required dependencies.
func NewTokenService(
	upstream BookFetcher,
	books domain.OrderbookCache,
	prices domain.PriceCache,
	logger *slog.Logger,
) *TokenService {
	return &TokenService{
		upstream: upstream,
		books:    books,
		prices:   prices,
		logger:   logger,
	}
}

// Orderbook returns the normalized book for a token, serving a cached
// snapshot when it is younger than the staleness threshold.
func (s *TokenService) Orderbook(ctx context.Context, tokenID string) (domain.Orderbook, error) {
	if !domain.ValidTokenID(tokenID) {
		return domain.Orderbook{}, fmt.Errorf("token_service: orderbook %q: %w", tokenID, domain.ErrInvalidTokenID)
	}

	if book, err := s.books.GetSnapshot(ctx, tokenID); err == nil {
		if time.Since(book.UpdatedAt) < bookStaleAfter {
			return book, nil
		}
	}

	book, err := s.upstream.GetOrderbook(ctx, tokenID)
	if err != nil {
		return domain.Orderbook{}, fmt.Errorf("token_service: orderbook %s: %w", tokenID, err)
	}

	if cacheErr := s.books.SetSnapshot(ctx, tokenID, book); cacheErr != nil {
		s.logger.WarnContext(ctx, "token_service: book cache set failed",
			slog.String("token_id", tokenID),
			slog.String("error", cacheErr.Error()),
		)
	}
	return book, nil
}

// PriceHistory returns synthesized OHLC candles for a token.
func (s *TokenService) PriceHistory(ctx context.Context, tokenID, interval string, startAt, endAt int64) (domain.PriceHistory, error) {
	if !domain.ValidTokenID(tokenID) {
		return domain.PriceHistory{}, fmt.Errorf("token_service: price history %q: %w", tokenID, domain.ErrInvalidTokenID)
	}

	hist, err := s.upstream.GetPriceHistory(ctx, tokenID, interval, startAt, endAt)
	if err != nil {
		return domain.PriceHistory{}, fmt.Errorf("token_service: price history %s: %w", tokenID, err)
	}
	return hist, nil
}

// LatestPrice returns the current price for a token, preferring the cache.
func (s *TokenService) LatestPrice(ctx context.Context, tokenID string) (domain.LatestPrice, error) {
	if !domain.ValidTokenID(tokenID) {
		return domain.LatestPrice{}, fmt.Errorf("token_service: latest price %q: %w", tokenID, domain.ErrInvalidTokenID)
	}

	if price, _, err := s.prices.GetPrice(ctx, tokenID); err == nil {
		return domain.LatestPrice{TokenID: tokenID, Price: price}, nil
	}

	latest, err := s.upstream.GetLatestPrice(ctx, tokenID)
	if err != nil {
		return domain.LatestPrice{}, fmt.Errorf("token_service: latest price %s: %w", tokenID, err)
	}
	if latest.TokenID == "" {
		latest.TokenID = tokenID
	}

	if cacheErr := s.prices.SetPrice(ctx, tokenID, latest.Price, time.Now()); cacheErr != nil {
		s.logger.WarnContext(ctx, "token_service: price cache set failed",
			slog.String("token_id", tokenID),
			slog.String("error", cacheErr.Error()),
		)
	}
	return latest, nil
}

// Trades returns one page of a market's public trade history.
func (s *TokenService) Trades(ctx context.Context, marketID int64, page, limit int) (domain.TradePage, error) {
	trades, err := s.upstream.ListTrades(ctx, marketID, page, limit)
	if err != nil {
		return domain.TradePage{}, fmt.Errorf("token_service: trades market %d: %w", marketID, err)
	}
	return trades, nil
}
