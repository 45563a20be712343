package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/opinionterm/opiniond/internal/domain"
)

type stubMarketService struct {
	page    domain.MarketPage
	market  domain.Market
	results []domain.Market
	err     error
}

func (s *stubMarketService) List(ctx context.Context, page, limit int) (domain.MarketPage, error) {
	return s.page, s.err
}

func (s *stubMarketService) Get(ctx context.Context, id int64) (domain.Market, error) {
	return s.market, s.err
}

func (s *stubMarketService) Search(ctx context.Context, keyword string, limit int) ([]domain.Market, error) {
	return s.results, s.err
}

type stubTokenService struct {
	book domain.Orderbook
	err  error
}

func (s *stubTokenService) Orderbook(ctx context.Context, tokenID string) (domain.Orderbook, error) {
	return s.book, s.err
}

func (s *stubTokenService) PriceHistory(ctx context.Context, tokenID, interval string, startAt, endAt int64) (domain.PriceHistory, error) {
	return domain.PriceHistory{TokenID: tokenID, Interval: interval}, s.err
}

func (s *stubTokenService) LatestPrice(ctx context.Context, tokenID string) (domain.LatestPrice, error) {
	return domain.LatestPrice{TokenID: tokenID, Price: 0.5}, s.err
}

func (s *stubTokenService) Trades(ctx context.Context, marketID int64, page, limit int) (domain.TradePage, error) {
	return domain.TradePage{}, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// newTestMux registers the handlers under the same patterns the server uses,
// so PathValue lookups work in tests.
func newTestMux(markets *MarketHandler, tokens *TokenHandler) *http.ServeMux {
	mux := http.NewServeMux()
	if markets != nil {
		mux.HandleFunc("GET /api/markets", markets.ListMarkets)
		mux.HandleFunc("GET /api/markets/search", markets.SearchMarkets)
		mux.HandleFunc("GET /api/markets/{id}", markets.GetMarket)
	}
	if tokens != nil {
		mux.HandleFunc("GET /api/markets/{id}/trades", tokens.ListTrades)
		mux.HandleFunc("GET /api/tokens/{id}/orderbook", tokens.GetOrderbook)
		mux.HandleFunc("GET /api/tokens/{id}/price-history", tokens.GetPriceHistory)
		mux.HandleFunc("GET /api/tokens/{id}/latest-price", tokens.GetLatestPrice)
	}
	return mux
}

func TestListMarketsResponseShape(t *testing.T) {
	h := NewMarketHandler(&stubMarketService{
		page: domain.MarketPage{List: []domain.Market{{ID: 1, Title: "a"}}, Total: 42},
	}, testLogger())
	mux := newTestMux(h, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/markets?page=2&limit=5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp listMarketsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 42 || resp.Page != 2 || resp.Limit != 5 || len(resp.Markets) != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestGetMarketErrors(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		err    error
		status int
	}{
		{"bad id", "/api/markets/abc", nil, http.StatusBadRequest},
		{"not found", "/api/markets/7", domain.ErrNotFound, http.StatusNotFound},
		{"rate limited", "/api/markets/7", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"upstream", "/api/markets/7", domain.ErrUpstream, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewMarketHandler(&stubMarketService{err: tc.err}, testLogger())
			mux := newTestMux(h, nil)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if rec.Code != tc.status {
				t.Errorf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}
}

func TestOrderbookInvalidTokenIs400(t *testing.T) {
	h := NewTokenHandler(&stubTokenService{err: domain.ErrInvalidTokenID}, testLogger())
	mux := newTestMux(nil, h)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tokens/short/orderbook", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPriceHistoryEmptyCandlesIsArray(t *testing.T) {
	h := NewTokenHandler(&stubTokenService{}, testLogger())
	mux := newTestMux(nil, h)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tokens/"+strings.Repeat("a", 60)+"/price-history", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"candles":[]`) {
		t.Errorf("body = %s, want empty candles array, not null", rec.Body.String())
	}
}

func TestProxyRelayAttachesKeyAndStreams(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/market/5" || r.Header.Get("apikey") != "secret" {
			t.Errorf("unexpected relay request: %s %v", r.URL.Path, r.Header)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errno":0,"result":{}}`))
	}))
	defer upstream.Close()

	h := NewProxyHandler(upstream.URL, "secret", testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/opinion/{path...}", h.Relay)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/opinion/market/5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != `{"errno":0,"result":{}}` {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestProxyRelayFailureEnvelope(t *testing.T) {
	// Point at a closed server so the dial fails.
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	h := NewProxyHandler(dead.URL, "", testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/opinion/{path...}", h.Relay)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/opinion/market/5", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var body struct {
		Errno  int    `json:"errno"`
		Errmsg string `json:"errmsg"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Errno != -1 || body.Errmsg != "proxy error" {
		t.Errorf("body = %+v", body)
	}
}
