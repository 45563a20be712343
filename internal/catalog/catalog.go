// Package catalog maintains a deduplicated snapshot of the whole market
// listing for search and filtering. The snapshot is built by walking the
// cheap non-enriching listing endpoint, so token IDs in it are unreliable;
// callers that need tokens go through the enriched path instead.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opinionterm/opiniond/internal/domain"
)

// Lister is the slice of the upstream client the catalog needs.
type Lister interface {
	ListMarkets(ctx context.Context, page, limit int, status string) (domain.MarketPage, error)
}

// Config tunes the catalog walk.
type Config struct {
	PageSize   int
	MaxPages   int
	Status     string
	MaxResults int
	Freshness  time.Duration
}

// Defaults returns the standard catalog configuration.
func Defaults() Config {
	return Config{
		PageSize:   50,
		MaxPages:   50,
		Status:     "activated",
		MaxResults: 50,
		Freshness:  10 * time.Minute,
	}
}

// Catalog serves the full market list, caching it between walks.
type Catalog struct {
	lister Lister
	cache  domain.CatalogCache
	cfg    Config
	logger *slog.Logger
}

func New(lister Lister, cache domain.CatalogCache, cfg Config, logger *slog.Logger) *Catalog {
	if cfg.PageSize < 1 {
		cfg.PageSize = 50
	}
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 50
	}
	if cfg.Freshness <= 0 {
		cfg.Freshness = 10 * time.Minute
	}
	return &Catalog{lister: lister, cache: cache, cfg: cfg, logger: logger}
}

// LoadAll returns the deduplicated full catalog, serving a cached snapshot
// when it is still fresh. A snapshot is assembled by paginating until the
// upstream total is reached, a page yields nothing new, or the page cap
// trips. A mid-walk fetch error ends the walk and the accumulation so far is
// returned rather than discarded.
func (c *Catalog) LoadAll(ctx context.Context) ([]domain.Market, error) {
	if cached, fetchedAt, err := c.cache.Get(ctx); err == nil {
		if time.Since(fetchedAt) < c.cfg.Freshness {
			return cached, nil
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		c.logger.Warn("catalog cache read failed", "error", err)
	}

	markets, err := c.walk(ctx)
	if err != nil && len(markets) == 0 {
		return nil, err
	}
	if err != nil {
		c.logger.Warn("catalog walk ended early", "collected", len(markets), "error", err)
	}

	if cerr := c.cache.Put(ctx, markets, time.Now()); cerr != nil {
		c.logger.Warn("catalog cache write failed", "error", cerr)
	}
	return markets, nil
}

// walk paginates the listing, deduplicating by market ID. First-seen order
// is preserved.
func (c *Catalog) walk(ctx context.Context) ([]domain.Market, error) {
	seen := make(map[int64]struct{})
	var all []domain.Market

	for page := 1; page <= c.cfg.MaxPages; page++ {
		result, err := c.lister.ListMarkets(ctx, page, c.cfg.PageSize, c.cfg.Status)
		if err != nil {
			return all, fmt.Errorf("catalog: walk page %d: %w", page, err)
		}
		if len(result.List) == 0 {
			break
		}

		newUnique := 0
		for _, m := range result.List {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			all = append(all, m)
			newUnique++
		}

		if newUnique == 0 {
			break
		}
		if result.Total > 0 && int64(len(all)) >= result.Total {
			break
		}
		if len(result.List) < c.cfg.PageSize {
			break
		}
	}

	c.logger.Debug("catalog walk complete", "markets", len(all))
	return all, nil
}

// Search filters the catalog by case-insensitive title substring. limit <= 0
// falls back to the configured maximum. Token IDs on results come from the
// light listing and may be empty.
func (c *Catalog) Search(ctx context.Context, keyword string, limit int) ([]domain.Market, error) {
	if limit <= 0 || limit > c.cfg.MaxResults {
		limit = c.cfg.MaxResults
	}

	all, err := c.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: search %q: %w", keyword, err)
	}

	needle := strings.ToLower(strings.TrimSpace(keyword))
	if needle == "" {
		if len(all) > limit {
			all = all[:limit]
		}
		return all, nil
	}

	var matches []domain.Market
	for _, m := range all {
		if strings.Contains(strings.ToLower(m.Title), needle) {
			matches = append(matches, m)
			if len(matches) >= limit {
				break
			}
		}
	}
	return matches, nil
}
