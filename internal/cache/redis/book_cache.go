package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opinionterm/opiniond/internal/domain"
)

// Snapshots go stale fast; the TTL only has to outlive the poll cadence.
const bookTTL = 5 * time.Second

// BookCache implements domain.OrderbookCache with whole-snapshot JSON values
// at key "opinion:book:{tokenID}". Books are always replaced wholesale; the
// upstream serves no incremental deltas.
type BookCache struct {
	rdb *redis.Client
}

// NewBookCache creates a BookCache backed by the given Client.
func NewBookCache(c *Client) *BookCache {
	return &BookCache{rdb: c.Underlying()}
}

func bookKey(tokenID string) string { return "opinion:book:" + tokenID }

// SetSnapshot stores a normalized orderbook snapshot.
func (bc *BookCache) SetSnapshot(ctx context.Context, tokenID string, book domain.Orderbook) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("redis: marshal book %s: %w", tokenID, err)
	}
	if err := bc.rdb.Set(ctx, bookKey(tokenID), data, bookTTL).Err(); err != nil {
		return fmt.Errorf("redis: set book %s: %w", tokenID, err)
	}
	return nil
}

// GetSnapshot retrieves an orderbook snapshot.
// It returns domain.ErrNotFound when the key does not exist or has expired.
func (bc *BookCache) GetSnapshot(ctx context.Context, tokenID string) (domain.Orderbook, error) {
	data, err := bc.rdb.Get(ctx, bookKey(tokenID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Orderbook{}, domain.ErrNotFound
		}
		return domain.Orderbook{}, fmt.Errorf("redis: get book %s: %w", tokenID, err)
	}

	var book domain.Orderbook
	if err := json.Unmarshal(data, &book); err != nil {
		return domain.Orderbook{}, fmt.Errorf("redis: unmarshal book %s: %w", tokenID, err)
	}
	return book, nil
}

// Compile-time interface check.
var _ domain.OrderbookCache = (*BookCache)(nil)
