// Package enrich fills in the outcome token IDs the market listing endpoint
// omits. The listing is cheap but incomplete; per-market detail is complete
// but expensive, so detail calls are batched and best-effort.
package enrich

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/opinionterm/opiniond/internal/domain"
)

// Fetcher is the slice of the upstream client the enricher needs.
type Fetcher interface {
	GetMarket(ctx context.Context, id int64) (domain.Market, error)
}

// Status of a single enrichment work item.
type Status int

const (
	StatusEnriched Status = iota
	StatusSkipped
)

// Outcome records what happened to one work-list entry. Skipped entries
// carry the reason; the market itself is left as the listing served it.
type Outcome struct {
	MarketID int64
	Child    bool
	ParentID int64
	Status   Status
	Reason   string
}

const defaultBatchSize = 10

// Enricher resolves missing token IDs via per-market detail lookups.
type Enricher struct {
	fetcher   Fetcher
	batchSize int
	logger    *slog.Logger
}

// New creates an Enricher. batchSize bounds concurrent detail requests per
// batch; values below 1 fall back to the default of 10.
func New(fetcher Fetcher, batchSize int, logger *slog.Logger) *Enricher {
	if batchSize < 1 {
		batchSize = defaultBatchSize
	}
	return &Enricher{fetcher: fetcher, batchSize: batchSize, logger: logger}
}

// workItem addresses one market needing tokens inside the page slice.
// childIdx is -1 for top-level binary markets.
type workItem struct {
	marketIdx int
	childIdx  int
}

// EnrichPage augments the markets in place and returns one Outcome per
// detail lookup attempted. Ordering of the page is never changed and no
// market is ever dropped; a failed lookup only leaves that market's tokens
// unfilled.
//
// Regardless of token state, every categorical child is stamped with its
// parent's ID and inherits the parent's images where its own are blank.
func (e *Enricher) EnrichPage(ctx context.Context, markets []domain.Market) []Outcome {
	var work []workItem
	for i := range markets {
		m := &markets[i]
		switch m.Type {
		case domain.MarketTypeBinary:
			if !m.HasTokens() {
				work = append(work, workItem{marketIdx: i, childIdx: -1})
			}
		case domain.MarketTypeCategorical:
			for j := range m.Children {
				child := &m.Children[j]
				child.ParentID = m.ID
				inheritImages(child, m)
				if !child.HasTokens() {
					work = append(work, workItem{marketIdx: i, childIdx: j})
				}
			}
		}
	}
	if len(work) == 0 {
		return nil
	}

	outcomes := make([]Outcome, len(work))
	for start := 0; start < len(work); start += e.batchSize {
		end := start + e.batchSize
		if end > len(work) {
			end = len(work)
		}
		e.runBatch(ctx, markets, work[start:end], outcomes[start:end])
	}
	return outcomes
}

// runBatch fetches details for one batch concurrently. Each item fails
// independently; errgroup is used for the join, not for cancellation, so
// goroutines never return errors.
func (e *Enricher) runBatch(ctx context.Context, markets []domain.Market, batch []workItem, outcomes []Outcome) {
	g, ctx := errgroup.WithContext(ctx)
	for i, item := range batch {
		g.Go(func() error {
			outcomes[i] = e.enrichOne(ctx, markets, item)
			return nil
		})
	}
	g.Wait()
}

func (e *Enricher) enrichOne(ctx context.Context, markets []domain.Market, item workItem) Outcome {
	target := &markets[item.marketIdx]
	out := Outcome{MarketID: target.ID}
	if item.childIdx >= 0 {
		out.Child = true
		out.ParentID = target.ID
		target = &target.Children[item.childIdx]
		out.MarketID = target.ID
	}

	detail, err := e.fetcher.GetMarket(ctx, target.ID)
	if err != nil {
		e.logger.Warn("detail fetch failed, tokens left unfilled",
			"market_id", target.ID, "child", out.Child, "error", err)
		out.Status = StatusSkipped
		out.Reason = err.Error()
		return out
	}

	mergeDetail(target, detail)
	out.Status = StatusEnriched
	return out
}

// mergeDetail copies identity fields off the detail response onto the
// listing's market, filling only what the listing left blank.
func mergeDetail(dst *domain.Market, detail domain.Market) {
	if dst.YesTokenID == "" {
		dst.YesTokenID = detail.YesTokenID
	}
	if dst.NoTokenID == "" {
		dst.NoTokenID = detail.NoTokenID
	}
	if dst.ConditionID == "" {
		dst.ConditionID = detail.ConditionID
	}
	if dst.QuestionID == "" {
		dst.QuestionID = detail.QuestionID
	}
}

// inheritImages applies the child image fallback chain: a child with no
// artwork of its own displays its parent's.
func inheritImages(child, parent *domain.Market) {
	if child.ThumbnailURL == "" {
		child.ThumbnailURL = parent.ThumbnailURL
	}
	if child.CoverURL == "" {
		child.CoverURL = parent.CoverURL
	}
	if child.Image == "" {
		child.Image = parent.Image
	}
	if child.Icon == "" {
		child.Icon = parent.Icon
	}
}
