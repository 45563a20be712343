package opinion

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opinionterm/opiniond/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		ChainID: 56,
		SortBy:  5,
		Timeout: 5 * time.Second,
	}, slog.New(slog.NewTextHandler(new(discardWriter), nil)))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestListMarketsUnwrapsResult(t *testing.T) {
	var gotPath, gotKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errno":0,"result":{"list":[{"marketId":42,"marketTitle":"BTC above 100k","marketType":0,"yesTokenId":"","noTokenId":""}],"total":137}}`))
	})

	page, err := client.ListMarkets(context.Background(), 1, 20, "activated")
	if err != nil {
		t.Fatalf("ListMarkets: %v", err)
	}
	if gotPath != "/market" {
		t.Errorf("path = %q, want /market", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("apikey header = %q, want test-key", gotKey)
	}
	if page.Total != 137 {
		t.Errorf("total = %d, want 137", page.Total)
	}
	if len(page.List) != 1 || page.List[0].ID != 42 {
		t.Fatalf("unexpected list: %+v", page.List)
	}
	if page.List[0].Title != "BTC above 100k" {
		t.Errorf("title = %q", page.List[0].Title)
	}
}

func TestListMarketsQueryParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		for key, want := range map[string]string{
			"status":     "activated",
			"marketType": "2",
			"sortby":     "5",
			"chainid":    "56",
			"page":       "3",
			"limit":      "50",
		} {
			if got := q.Get(key); got != want {
				t.Errorf("query %s = %q, want %q", key, got, want)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errno":0,"result":{"list":[],"total":0}}`))
	})

	if _, err := client.ListMarkets(context.Background(), 3, 50, "activated"); err != nil {
		t.Fatalf("ListMarkets: %v", err)
	}
}

func TestGetMarketErrnoFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errno":10001,"errmsg":"market not exist"}`))
	})

	_, err := client.GetMarket(context.Background(), 999)
	if err == nil {
		t.Fatal("expected error for non-zero errno")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Errno != 10001 {
		t.Errorf("errno = %d, want 10001", apiErr.Errno)
	}
	if apiErr.Message != "market not exist" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestGetMarketHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, domain.ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, domain.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, domain.ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, domain.ErrRateLimited},
		{"server error", http.StatusBadGateway, domain.ErrUpstream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				w.Write([]byte(`{}`))
			})
			_, err := client.GetMarket(context.Background(), 1)
			if !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want sentinel %v", err, tc.want)
			}
		})
	}
}

func TestGetFallsBackToGenericMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errno":5}`))
	})

	_, err := client.GetMarket(context.Background(), 1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Message != "request failed" {
		t.Errorf("message = %q, want generic fallback", apiErr.Message)
	}
}

func TestGetRejectsNonJSONBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>502 Bad Gateway</html>"))
	})

	_, err := client.GetMarket(context.Background(), 1)
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
}

func TestGetMarketTopLevelPayload(t *testing.T) {
	// Some endpoints skip the result wrapper entirely.
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"marketId":7,"marketTitle":"Unwrapped","marketType":1,"childMarkets":[{"marketId":8,"marketTitle":"Child","yesTokenId":"y","noTokenId":"n"}]}`))
	})

	m, err := client.GetMarket(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetMarket: %v", err)
	}
	if m.ID != 7 || m.Title != "Unwrapped" {
		t.Fatalf("unexpected market: %+v", m)
	}
	if len(m.Children) != 1 || m.Children[0].ID != 8 {
		t.Fatalf("children not decoded: %+v", m.Children)
	}
}

func TestGetOrderbook(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token_id"); got != "tok-1" {
			t.Errorf("token_id = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errno":0,"result":{"bids":[{"price":"0.40","size":"100"}],"asks":[{"price":"0.60","size":"20"},{"price":"0.55","size":"50"}]}}`))
	})

	book, err := client.GetOrderbook(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("GetOrderbook: %v", err)
	}
	if book.BestBid != 0.40 || book.BestAsk != 0.55 {
		t.Errorf("best bid/ask = %v/%v, want 0.40/0.55", book.BestBid, book.BestAsk)
	}
}

func TestGetPriceHistoryRange(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("interval") != "1h" || q.Get("start_at") != "100" || q.Get("end_at") != "200" {
			t.Errorf("unexpected query: %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errno":0,"result":{"history":[{"t":100,"p":"0.5"}]}}`))
	})

	hist, err := client.GetPriceHistory(context.Background(), "tok-1", "1h", 100, 200)
	if err != nil {
		t.Fatalf("GetPriceHistory: %v", err)
	}
	if len(hist.Candles) != 1 || hist.Candles[0].Close != 0.5 {
		t.Fatalf("unexpected candles: %+v", hist.Candles)
	}
}

func TestListTrades(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trade/market/42" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errno":0,"result":{"list":[{"tradeId":"t1","marketId":42,"side":"buy","price":"0.44","amount":"10","timestamp":1700000000}],"total":1}}`))
	})

	page, err := client.ListTrades(context.Background(), 42, 1, 20)
	if err != nil {
		t.Fatalf("ListTrades: %v", err)
	}
	if len(page.Trades) != 1 || page.Trades[0].Price != 0.44 {
		t.Fatalf("unexpected trades: %+v", page.Trades)
	}
	// Numeric wire fields land as integers, not strings.
	if page.Trades[0].MarketID != 42 {
		t.Errorf("MarketID = %v, want 42", page.Trades[0].MarketID)
	}
	if page.Trades[0].Timestamp != 1700000000 {
		t.Errorf("Timestamp = %v, want 1700000000", page.Trades[0].Timestamp)
	}
}

func TestGetMarketStatusEnum(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// statusEnum arrives quoted on some endpoints; both forms decode to int.
		w.Write([]byte(`{"errno":0,"result":{"marketId":7,"marketTitle":"x","statusEnum":"3"}}`))
	})

	m, err := client.GetMarket(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetMarket: %v", err)
	}
	if m.StatusEnum != 3 {
		t.Errorf("StatusEnum = %v, want 3", m.StatusEnum)
	}
}
