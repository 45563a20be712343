// Package service implements the read paths the API server exposes,
// composing the upstream client, the enrichment pipeline, the catalog, and
// the caches.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/opinionterm/opiniond/internal/domain"
	"github.com/opinionterm/opiniond/internal/enrich"
)

// Upstream is the slice of the API client the market service needs.
type Upstream interface {
	ListMarkets(ctx context.Context, page, limit int, status string) (domain.MarketPage, error)
	GetMarket(ctx context.Context, id int64) (domain.Market, error)
}

// Searcher serves keyword search over the full catalog.
type Searcher interface {
	Search(ctx context.Context, keyword string, limit int) ([]domain.Market, error)
}

// MarketServiceConfig tunes the listing and lookup paths.
type MarketServiceConfig struct {
	Status string
	// PageSize and DetailScanPages bound the fallback scan a by-ID lookup
	// performs when the detail endpoint does not know the market.
	PageSize        int
	DetailScanPages int
}

// MarketService handles market listing, lookup, and search.
type MarketService struct {
	upstream Upstream
	enricher *enrich.Enricher
	search   Searcher
	cache    domain.MarketCache
	cfg      MarketServiceConfig
	logger   *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(
	upstream Upstream,
	enricher *enrich.Enricher,
	search Searcher,
	cache domain.MarketCache,
	cfg MarketServiceConfig,
	logger *slog.Logger,
) *MarketService {
	if cfg.Status == "" {
		cfg.Status = "activated"
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = 50
	}
	if cfg.DetailScanPages < 1 {
		cfg.DetailScanPages = 5
	}
	return &MarketService{
		upstream: upstream,
		enricher: enricher,
		search:   search,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
	}
}

// List returns one enriched page of the market listing. Enrichment failures
// never fail the page; they leave individual markets without tokens and are
// logged here.
func (s *MarketService) List(ctx context.Context, page, limit int) (domain.MarketPage, error) {
	result, err := s.upstream.ListMarkets(ctx, page, limit, s.cfg.Status)
	if err != nil {
		return domain.MarketPage{}, fmt.Errorf("market_service: list page %d: %w", page, err)
	}

	outcomes := s.enricher.EnrichPage(ctx, result.List)
	for _, o := range outcomes {
		if o.Status == enrich.StatusSkipped {
			s.logger.WarnContext(ctx, "market_service: enrichment skipped",
				slog.Int64("market_id", o.MarketID),
				slog.Bool("child", o.Child),
				slog.String("reason", o.Reason),
			)
		}
	}

	// Keep the cache warm for by-ID and by-token lookups. Set failures are
	// independent per market, so one bad write never stops the rest.
	for _, m := range result.List {
		s.cacheSet(ctx, m)
	}

	return result, nil
}

// Get retrieves one market by ID, checking the cache, then the detail
// endpoint, then falling back to scanning the enriched listing. The scan
// covers both top-level markets and categorical children, so a child ID
// resolves even though the detail endpoint may not serve it directly.
func (s *MarketService) Get(ctx context.Context, id int64) (domain.Market, error) {
	if m, err := s.cache.Get(ctx, id); err == nil {
		return m, nil
	}

	m, err := s.upstream.GetMarket(ctx, id)
	if err == nil {
		s.cacheSet(ctx, m)
		return m, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Market{}, fmt.Errorf("market_service: get %d: %w", id, err)
	}

	m, err = s.scanListing(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get %d: %w", id, err)
	}
	s.cacheSet(ctx, m)
	return m, nil
}

// scanListing walks up to DetailScanPages enriched pages looking for the
// market among top-level entries and categorical children.
func (s *MarketService) scanListing(ctx context.Context, id int64) (domain.Market, error) {
	for page := 1; page <= s.cfg.DetailScanPages; page++ {
		result, err := s.upstream.ListMarkets(ctx, page, s.cfg.PageSize, s.cfg.Status)
		if err != nil {
			return domain.Market{}, err
		}
		if len(result.List) == 0 {
			break
		}

		s.enricher.EnrichPage(ctx, result.List)
		for _, m := range result.List {
			if m.ID == id {
				return m, nil
			}
			for _, child := range m.Children {
				if child.ID == id {
					return child, nil
				}
			}
		}

		if len(result.List) < s.cfg.PageSize {
			break
		}
	}
	return domain.Market{}, domain.ErrNotFound
}

// Search filters the full catalog by title keyword.
func (s *MarketService) Search(ctx context.Context, keyword string, limit int) ([]domain.Market, error) {
	markets, err := s.search.Search(ctx, keyword, limit)
	if err != nil {
		return nil, fmt.Errorf("market_service: search %q: %w", keyword, err)
	}
	return markets, nil
}

func (s *MarketService) cacheSet(ctx context.Context, m domain.Market) {
	if err := s.cache.Set(ctx, m); err != nil {
		s.logger.WarnContext(ctx, "market_service: cache set failed",
			slog.Int64("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
}
