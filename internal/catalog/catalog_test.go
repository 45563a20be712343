package catalog

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/opinionterm/opiniond/internal/domain"
)

type stubLister struct {
	pages map[int]domain.MarketPage
	errAt int
	calls int
}

func (s *stubLister) ListMarkets(ctx context.Context, page, limit int, status string) (domain.MarketPage, error) {
	s.calls++
	if s.errAt > 0 && page >= s.errAt {
		return domain.MarketPage{}, errors.New("upstream down")
	}
	return s.pages[page], nil
}

type memCatalogCache struct {
	markets   []domain.Market
	fetchedAt time.Time
	puts      int
}

func (c *memCatalogCache) Put(ctx context.Context, markets []domain.Market, fetchedAt time.Time) error {
	c.markets = markets
	c.fetchedAt = fetchedAt
	c.puts++
	return nil
}

func (c *memCatalogCache) Get(ctx context.Context) ([]domain.Market, time.Time, error) {
	if c.markets == nil {
		return nil, time.Time{}, domain.ErrNotFound
	}
	return c.markets, c.fetchedAt, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func mk(id int64, title string) domain.Market {
	return domain.Market{ID: id, Title: title, Type: domain.MarketTypeBinary}
}

func newCatalog(lister Lister, cache domain.CatalogCache, pageSize int) *Catalog {
	cfg := Defaults()
	cfg.PageSize = pageSize
	return New(lister, cache, cfg, testLogger())
}

func TestLoadAllDeduplicatesAcrossPages(t *testing.T) {
	lister := &stubLister{pages: map[int]domain.MarketPage{
		1: {List: []domain.Market{mk(1, "a"), mk(2, "b")}, Total: 3},
		2: {List: []domain.Market{mk(2, "b"), mk(3, "c")}, Total: 3},
	}}
	cat := newCatalog(lister, &memCatalogCache{}, 2)

	all, err := cat.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d markets, want 3: %+v", len(all), all)
	}
	// First-seen order is preserved.
	for i, want := range []int64{1, 2, 3} {
		if all[i].ID != want {
			t.Errorf("all[%d].ID = %d, want %d", i, all[i].ID, want)
		}
	}
	if lister.calls != 2 {
		t.Errorf("lister calls = %d, want 2 (total reached)", lister.calls)
	}
}

func TestLoadAllStopsOnZeroNewUnique(t *testing.T) {
	// Page 2 repeats page 1 entirely; the walk must not spin to the cap.
	repeat := domain.MarketPage{List: []domain.Market{mk(1, "a"), mk(2, "b")}, Total: 100}
	lister := &stubLister{pages: map[int]domain.MarketPage{1: repeat, 2: repeat}}
	cat := newCatalog(lister, &memCatalogCache{}, 2)

	all, err := cat.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d markets, want 2", len(all))
	}
	if lister.calls != 2 {
		t.Errorf("lister calls = %d, want 2", lister.calls)
	}
}

func TestLoadAllHonorsPageCap(t *testing.T) {
	// Every page is full of fresh markets and total is inflated, so only the
	// cap stops the walk.
	lister := &stubLister{pages: map[int]domain.MarketPage{}}
	var id int64
	for page := 1; page <= 60; page++ {
		var list []domain.Market
		for i := 0; i < 2; i++ {
			id++
			list = append(list, mk(id, "m"))
		}
		lister.pages[page] = domain.MarketPage{List: list, Total: 100000}
	}
	cfg := Defaults()
	cfg.PageSize = 2
	cfg.MaxPages = 50
	cat := New(lister, &memCatalogCache{}, cfg, testLogger())

	all, err := cat.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if lister.calls != 50 {
		t.Errorf("lister calls = %d, want 50 (hard cap)", lister.calls)
	}
	if len(all) != 100 {
		t.Errorf("got %d markets, want 100", len(all))
	}
}

func TestLoadAllReturnsPartialOnMidWalkError(t *testing.T) {
	lister := &stubLister{
		pages: map[int]domain.MarketPage{
			1: {List: []domain.Market{mk(1, "a"), mk(2, "b")}, Total: 10},
		},
		errAt: 2,
	}
	cache := &memCatalogCache{}
	cat := newCatalog(lister, cache, 2)

	all, err := cat.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d markets, want partial accumulation of 2", len(all))
	}
	if cache.puts != 1 {
		t.Errorf("cache puts = %d, want 1", cache.puts)
	}
}

func TestLoadAllErrorOnFirstPage(t *testing.T) {
	lister := &stubLister{errAt: 1}
	cat := newCatalog(lister, &memCatalogCache{}, 2)

	if _, err := cat.LoadAll(context.Background()); err == nil {
		t.Fatal("expected error when nothing was collected")
	}
}

func TestLoadAllServesFreshCache(t *testing.T) {
	lister := &stubLister{}
	cache := &memCatalogCache{
		markets:   []domain.Market{mk(1, "cached")},
		fetchedAt: time.Now(),
	}
	cat := newCatalog(lister, cache, 2)

	all, err := cat.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 1 || all[0].Title != "cached" {
		t.Fatalf("expected cached snapshot, got %+v", all)
	}
	if lister.calls != 0 {
		t.Errorf("lister calls = %d, want 0 on cache hit", lister.calls)
	}
}

func TestLoadAllRefetchesStaleCache(t *testing.T) {
	lister := &stubLister{pages: map[int]domain.MarketPage{
		1: {List: []domain.Market{mk(2, "fresh")}, Total: 1},
	}}
	cache := &memCatalogCache{
		markets:   []domain.Market{mk(1, "stale")},
		fetchedAt: time.Now().Add(-11 * time.Minute),
	}
	cat := newCatalog(lister, cache, 2)

	all, err := cat.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 1 || all[0].Title != "fresh" {
		t.Fatalf("expected refetched snapshot, got %+v", all)
	}
}

func TestSearchFiltersCaseInsensitive(t *testing.T) {
	lister := &stubLister{pages: map[int]domain.MarketPage{
		1: {List: []domain.Market{
			mk(1, "Bitcoin above 100k"),
			mk(2, "Ethereum flips Bitcoin"),
			mk(3, "Fed cuts rates"),
		}, Total: 3},
	}}
	cat := newCatalog(lister, &memCatalogCache{}, 50)

	matches, err := cat.Search(context.Background(), "bitcoin", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2: %+v", len(matches), matches)
	}
	if matches[0].ID != 1 || matches[1].ID != 2 {
		t.Errorf("match order = %+v", matches)
	}
}

func TestSearchEmptyKeywordReturnsHead(t *testing.T) {
	lister := &stubLister{pages: map[int]domain.MarketPage{
		1: {List: []domain.Market{mk(1, "a"), mk(2, "b"), mk(3, "c")}, Total: 3},
	}}
	cat := newCatalog(lister, &memCatalogCache{}, 50)

	matches, err := cat.Search(context.Background(), "  ", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want limit of 2", len(matches))
	}
}
