package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/opinionterm/opiniond/internal/domain"
)

// TokenService defines the methods the token handler requires from the
// service layer.
type TokenService interface {
	Orderbook(ctx context.Context, tokenID string) (domain.Orderbook, error)
	PriceHistory(ctx context.Context, tokenID, interval string, startAt, endAt int64) (domain.PriceHistory, error)
	LatestPrice(ctx context.Context, tokenID string) (domain.LatestPrice, error)
	Trades(ctx context.Context, marketID int64, page, limit int) (domain.TradePage, error)
}

// TokenHandler serves per-token market data endpoints.
type TokenHandler struct {
	tokens TokenService
	logger *slog.Logger
}

// NewTokenHandler creates a TokenHandler with the given service and logger.
func NewTokenHandler(tokens TokenService, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{
		tokens: tokens,
		logger: logger,
	}
}

// GetOrderbook returns the normalized orderbook for a token.
// GET /api/tokens/{id}/orderbook
func (h *TokenHandler) GetOrderbook(w http.ResponseWriter, r *http.Request) {
	tokenID := r.PathValue("id")

	book, err := h.tokens.Orderbook(r.Context(), tokenID)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: orderbook failed",
			slog.String("token_id", tokenID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to get orderbook")
		return
	}

	writeJSON(w, http.StatusOK, book)
}

// GetPriceHistory returns synthesized OHLC candles for a token.
// GET /api/tokens/{id}/price-history?interval=1h&start_at=0&end_at=0
func (h *TokenHandler) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	tokenID := r.PathValue("id")
	q := r.URL.Query()

	interval := q.Get("interval")
	if interval == "" {
		interval = "1h"
	}
	startAt, _ := strconv.ParseInt(q.Get("start_at"), 10, 64)
	endAt, _ := strconv.ParseInt(q.Get("end_at"), 10, 64)

	hist, err := h.tokens.PriceHistory(r.Context(), tokenID, interval, startAt, endAt)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: price history failed",
			slog.String("token_id", tokenID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to get price history")
		return
	}

	if hist.Candles == nil {
		hist.Candles = []domain.Candle{}
	}
	writeJSON(w, http.StatusOK, hist)
}

// GetLatestPrice returns the current price for a token.
// GET /api/tokens/{id}/latest-price
func (h *TokenHandler) GetLatestPrice(w http.ResponseWriter, r *http.Request) {
	tokenID := r.PathValue("id")

	price, err := h.tokens.LatestPrice(r.Context(), tokenID)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: latest price failed",
			slog.String("token_id", tokenID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to get latest price")
		return
	}

	writeJSON(w, http.StatusOK, price)
}

// tradesResponse wraps one page of a market's trade history.
type tradesResponse struct {
	Trades []domain.Trade `json:"trades"`
	Total  int64          `json:"total"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
}

// ListTrades returns one page of a market's public trades.
// GET /api/markets/{id}/trades?page=1&limit=20
func (h *TokenHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	marketID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	page, limit := parsePageOpts(r)

	result, err := h.tokens.Trades(r.Context(), marketID, page, limit)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: trades failed",
			slog.Int64("market_id", marketID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to list trades")
		return
	}

	trades := result.Trades
	if trades == nil {
		trades = []domain.Trade{}
	}
	writeJSON(w, http.StatusOK, tradesResponse{
		Trades: trades,
		Total:  result.Total,
		Page:   page,
		Limit:  limit,
	})
}
