package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opinionterm/opiniond/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL. Categorical
// children are flattened into their own rows carrying parent_id; reads
// reassemble them under the parent.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const upsertQuery = `
	INSERT INTO markets (
		id, parent_id, title, market_type, status, status_enum, chain_id,
		yes_token_id, no_token_id, condition_id, question_id,
		yes_label, no_label, volume, volume_24h, volume_7d,
		cutoff_at, resolved_at, created_at, rules, quote_token,
		thumbnail_url, cover_url, image, icon, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7,
		$8, $9, $10, $11,
		$12, $13, $14, $15, $16,
		$17, $18, $19, $20, $21,
		$22, $23, $24, $25, NOW()
	)
	ON CONFLICT (id) DO UPDATE SET
		parent_id     = EXCLUDED.parent_id,
		title         = EXCLUDED.title,
		market_type   = EXCLUDED.market_type,
		status        = EXCLUDED.status,
		status_enum   = EXCLUDED.status_enum,
		chain_id      = EXCLUDED.chain_id,
		yes_token_id  = EXCLUDED.yes_token_id,
		no_token_id   = EXCLUDED.no_token_id,
		condition_id  = EXCLUDED.condition_id,
		question_id   = EXCLUDED.question_id,
		yes_label     = EXCLUDED.yes_label,
		no_label      = EXCLUDED.no_label,
		volume        = EXCLUDED.volume,
		volume_24h    = EXCLUDED.volume_24h,
		volume_7d     = EXCLUDED.volume_7d,
		cutoff_at     = EXCLUDED.cutoff_at,
		resolved_at   = EXCLUDED.resolved_at,
		created_at    = EXCLUDED.created_at,
		rules         = EXCLUDED.rules,
		quote_token   = EXCLUDED.quote_token,
		thumbnail_url = EXCLUDED.thumbnail_url,
		cover_url     = EXCLUDED.cover_url,
		image         = EXCLUDED.image,
		icon          = EXCLUDED.icon,
		updated_at    = NOW()`

func queueUpsert(batch *pgx.Batch, m domain.Market, parentID *int64) {
	batch.Queue(upsertQuery,
		m.ID, parentID, m.Title, int(m.Type), m.Status, m.StatusEnum, m.ChainID,
		m.YesTokenID, m.NoTokenID, m.ConditionID, m.QuestionID,
		m.YesLabel, m.NoLabel, m.Volume, m.Volume24h, m.Volume7d,
		m.CutoffAt, m.ResolvedAt, m.CreatedAt, m.Rules, m.QuoteToken,
		m.ThumbnailURL, m.CoverURL, m.Image, m.Icon,
	)
}

// UpsertBatch inserts or updates markets and their children in one batch.
// Parents are queued before their children to satisfy the parent_id
// reference.
func (s *MarketStore) UpsertBatch(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	queued := 0
	for _, m := range markets {
		queueUpsert(batch, m, nil)
		queued++
		for _, child := range m.Children {
			parentID := m.ID
			queueUpsert(batch, child, &parentID)
			queued++
		}
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < queued; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert market batch item %d: %w", i, err)
		}
	}
	return nil
}

const marketCols = `id, COALESCE(parent_id, 0), title, market_type, status, status_enum, chain_id,
	yes_token_id, no_token_id, condition_id, question_id,
	yes_label, no_label, volume, volume_24h, volume_7d,
	cutoff_at, resolved_at, created_at, rules, quote_token,
	thumbnail_url, cover_url, image, icon`

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var marketType int
	err := row.Scan(
		&m.ID, &m.ParentID, &m.Title, &marketType, &m.Status, &m.StatusEnum, &m.ChainID,
		&m.YesTokenID, &m.NoTokenID, &m.ConditionID, &m.QuestionID,
		&m.YesLabel, &m.NoLabel, &m.Volume, &m.Volume24h, &m.Volume7d,
		&m.CutoffAt, &m.ResolvedAt, &m.CreatedAt, &m.Rules, &m.QuoteToken,
		&m.ThumbnailURL, &m.CoverURL, &m.Image, &m.Icon,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Type = domain.MarketType(marketType)
	return m, nil
}

func (s *MarketStore) collectMarkets(rows pgx.Rows) ([]domain.Market, error) {
	defer rows.Close()
	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

// GetByID retrieves a market by its primary key, with any children attached.
func (s *MarketStore) GetByID(ctx context.Context, id int64) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %d: %w", id, err)
	}

	if m.Type == domain.MarketTypeCategorical {
		rows, err := s.pool.Query(ctx,
			`SELECT `+marketCols+` FROM markets WHERE parent_id = $1 ORDER BY id`, id)
		if err != nil {
			return domain.Market{}, fmt.Errorf("postgres: get children of %d: %w", id, err)
		}
		m.Children, err = s.collectMarkets(rows)
		if err != nil {
			return domain.Market{}, fmt.Errorf("postgres: scan children of %d: %w", id, err)
		}
	}
	return m, nil
}

// ListActive returns top-level markets still accepting orders, newest first.
func (s *MarketStore) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets
		WHERE parent_id IS NULL AND status = 'activated'
		ORDER BY created_at DESC`
	args := []any{}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active markets: %w", err)
	}
	markets, err := s.collectMarkets(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan active markets: %w", err)
	}
	return markets, nil
}

// SearchByTitle returns top-level markets whose title contains the keyword,
// case-insensitively.
func (s *MarketStore) SearchByTitle(ctx context.Context, keyword string, limit int) ([]domain.Market, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketCols+` FROM markets
		WHERE parent_id IS NULL AND title ILIKE '%' || $1 || '%'
		ORDER BY volume DESC LIMIT $2`, keyword, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: search markets %q: %w", keyword, err)
	}
	markets, err := s.collectMarkets(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan search results %q: %w", keyword, err)
	}
	return markets, nil
}

// Count returns the total number of stored rows, children included.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM markets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return n, nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
