package domain

import "context"

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// MarketStore persists the market catalog. Categorical children are stored as
// their own rows with ParentID set.
type MarketStore interface {
	UpsertBatch(ctx context.Context, markets []Market) error
	GetByID(ctx context.Context, id int64) (Market, error)
	ListActive(ctx context.Context, opts ListOpts) ([]Market, error)
	SearchByTitle(ctx context.Context, keyword string, limit int) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}
