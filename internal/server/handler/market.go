package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/opinionterm/opiniond/internal/domain"
)

// MarketService defines the methods the market handler requires from the
// service layer. It is declared locally so the handler package does not
// depend on the concrete service implementation.
type MarketService interface {
	List(ctx context.Context, page, limit int) (domain.MarketPage, error)
	Get(ctx context.Context, id int64) (domain.Market, error)
	Search(ctx context.Context, keyword string, limit int) ([]domain.Market, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

// ListMarkets returns one enriched page of the market listing.
// GET /api/markets?page=1&limit=20
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePageOpts(r)

	result, err := h.markets.List(r.Context(), page, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to list markets")
		return
	}

	markets := result.List
	if markets == nil {
		markets = []domain.Market{}
	}
	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Total:   result.Total,
		Page:    page,
		Limit:   limit,
	})
}

// GetMarket returns a single market by ID, child markets included.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	market, err := h.markets.Get(r.Context(), id)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: get market failed",
			slog.Int64("market_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to get market")
		return
	}

	writeJSON(w, http.StatusOK, market)
}

// searchResponse wraps keyword search results.
type searchResponse struct {
	Markets []domain.Market `json:"markets"`
	Keyword string          `json:"keyword"`
}

// SearchMarkets filters the full catalog by title keyword.
// GET /api/markets/search?q=bitcoin&limit=50
func (h *MarketHandler) SearchMarkets(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("q")
	_, limit := parsePageOpts(r)

	markets, err := h.markets.Search(r.Context(), keyword, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: search failed",
			slog.String("keyword", keyword),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "search failed")
		return
	}

	if markets == nil {
		markets = []domain.Market{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Markets: markets, Keyword: keyword})
}
