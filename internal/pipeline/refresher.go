// Package pipeline runs the background jobs: periodic catalog refresh into
// the store and interval-based snapshot archival to blob storage.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opinionterm/opiniond/internal/domain"
)

// CatalogLoader assembles the full deduplicated market catalog.
type CatalogLoader interface {
	LoadAll(ctx context.Context) ([]domain.Market, error)
}

// Refresher walks the full catalog and persists it, keeping search and
// listing queries answerable without hitting the upstream.
type Refresher struct {
	catalog CatalogLoader
	store   domain.MarketStore
	logger  *slog.Logger
}

// NewRefresher creates a new Refresher.
func NewRefresher(catalog CatalogLoader, store domain.MarketStore, logger *slog.Logger) *Refresher {
	return &Refresher{catalog: catalog, store: store, logger: logger}
}

// Run executes a single refresh: load the catalog, upsert it wholesale.
func (r *Refresher) Run(ctx context.Context) error {
	started := time.Now()

	markets, err := r.catalog.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("refresher: load catalog: %w", err)
	}
	if len(markets) == 0 {
		r.logger.Warn("refresher: catalog empty, nothing to persist")
		return nil
	}

	if err := r.store.UpsertBatch(ctx, markets); err != nil {
		return fmt.Errorf("refresher: upsert %d markets: %w", len(markets), err)
	}

	r.logger.Info("catalog refresh complete",
		slog.Int("markets", len(markets)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// RunLoop runs the refresher on a repeating interval until the context is
// cancelled. The first run happens immediately.
func (r *Refresher) RunLoop(ctx context.Context, interval time.Duration) error {
	if err := r.Run(ctx); err != nil {
		r.logger.Error("catalog refresh failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Run(ctx); err != nil {
				r.logger.Error("catalog refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}
