// Package opinion is the REST client for the Opinion OpenAPI, which serves
// prediction-market listings, per-market detail, orderbooks, price history,
// and public trades.
package opinion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/opinionterm/opiniond/internal/domain"
)

// Config holds the client's connection parameters. ChainID and SortBy are
// fixed query parameters the listing endpoint requires: markets are always
// requested for one chain, sorted one way.
type Config struct {
	BaseURL string
	APIKey  string
	ChainID int
	SortBy  int
	Timeout time.Duration
}

// Client is the Opinion OpenAPI REST client.
type Client struct {
	baseURL    string
	apiKey     string
	chainID    int
	sortBy     int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Opinion API client.
//
// cfg.BaseURL is the API root, e.g. "https://openapi.opinion.trade/openapi".
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		chainID: cfg.ChainID,
		sortBy:  cfg.SortBy,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// APIError is an upstream business error, signalled by a non-zero errno in
// the response envelope or a non-2xx HTTP status.
type APIError struct {
	Errno   int
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("opinion: upstream error (errno=%d, http=%d): %s", e.Errno, e.Status, e.Message)
}

// Unwrap maps the error onto a domain sentinel by HTTP status so callers can
// use errors.Is without knowing upstream codes.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrUnauthorized
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	default:
		return domain.ErrUpstream
	}
}

// ListMarkets returns one page of the market listing, restricted to the
// configured chain and sort order. marketType=2 asks for binary and
// categorical markets together. Token IDs are generally absent from this
// endpoint; see the enrich package.
func (c *Client) ListMarkets(ctx context.Context, page, limit int, status string) (domain.MarketPage, error) {
	params := url.Values{}
	params.Set("status", status)
	params.Set("marketType", "2")
	params.Set("sortby", strconv.Itoa(c.sortBy))
	params.Set("chainid", strconv.Itoa(c.chainID))
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "/market?"+params.Encode())
	if err != nil {
		return domain.MarketPage{}, fmt.Errorf("opinion: list markets page %d: %w", page, err)
	}

	var list apiMarketList
	if err := json.Unmarshal(body, &list); err != nil {
		return domain.MarketPage{}, fmt.Errorf("opinion: decode market list: %w", err)
	}

	return list.toDomain(), nil
}

// GetMarket returns a single market by its ID. The detail endpoint is the
// only listing source that reliably carries outcome token IDs.
func (c *Client) GetMarket(ctx context.Context, id int64) (domain.Market, error) {
	body, err := c.get(ctx, fmt.Sprintf("/market/%d", id))
	if err != nil {
		return domain.Market{}, fmt.Errorf("opinion: get market %d: %w", id, err)
	}

	var m apiMarket
	if err := json.Unmarshal(body, &m); err != nil {
		return domain.Market{}, fmt.Errorf("opinion: decode market %d: %w", id, err)
	}

	return m.toDomain(), nil
}

// GetOrderbook fetches and normalizes the live orderbook for a token.
func (c *Client) GetOrderbook(ctx context.Context, tokenID string) (domain.Orderbook, error) {
	body, err := c.get(ctx, "/token/orderbook?token_id="+url.QueryEscape(tokenID))
	if err != nil {
		return domain.Orderbook{}, fmt.Errorf("opinion: get orderbook %s: %w", tokenID, err)
	}

	var raw rawOrderbook
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.Orderbook{}, fmt.Errorf("opinion: decode orderbook %s: %w", tokenID, err)
	}

	return NormalizeOrderbook(tokenID, raw.Bids, raw.Asks), nil
}

// GetPriceHistory fetches the sparse last-trade price series for a token and
// synthesizes OHLC candles from it. startAt and endAt are optional Unix
// seconds; zero means unbounded.
func (c *Client) GetPriceHistory(ctx context.Context, tokenID, interval string, startAt, endAt int64) (domain.PriceHistory, error) {
	path := "/token/price-history?token_id=" + url.QueryEscape(tokenID) + "&interval=" + url.QueryEscape(interval)
	if startAt > 0 {
		path += "&start_at=" + strconv.FormatInt(startAt, 10)
	}
	if endAt > 0 {
		path += "&end_at=" + strconv.FormatInt(endAt, 10)
	}

	body, err := c.get(ctx, path)
	if err != nil {
		return domain.PriceHistory{}, fmt.Errorf("opinion: get price history %s: %w", tokenID, err)
	}

	var raw rawPriceHistory
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.PriceHistory{}, fmt.Errorf("opinion: decode price history %s: %w", tokenID, err)
	}

	return domain.PriceHistory{
		TokenID:  tokenID,
		Interval: interval,
		Candles:  NormalizeCandles(raw.History),
	}, nil
}

// GetLatestPrice returns the current price for a token.
func (c *Client) GetLatestPrice(ctx context.Context, tokenID string) (domain.LatestPrice, error) {
	body, err := c.get(ctx, "/token/latest-price?token_id="+url.QueryEscape(tokenID))
	if err != nil {
		return domain.LatestPrice{}, fmt.Errorf("opinion: get latest price %s: %w", tokenID, err)
	}

	var raw rawLatestPrice
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.LatestPrice{}, fmt.Errorf("opinion: decode latest price %s: %w", tokenID, err)
	}

	return domain.LatestPrice{TokenID: raw.TokenID, Price: float64(raw.Price)}, nil
}

// ListTrades returns one page of a market's public trade history.
func (c *Client) ListTrades(ctx context.Context, marketID int64, page, limit int) (domain.TradePage, error) {
	body, err := c.get(ctx, fmt.Sprintf("/trade/market/%d?page=%d&limit=%d", marketID, page, limit))
	if err != nil {
		return domain.TradePage{}, fmt.Errorf("opinion: list trades market %d: %w", marketID, err)
	}

	var raw rawTradeList
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.TradePage{}, fmt.Errorf("opinion: decode trades market %d: %w", marketID, err)
	}

	result := domain.TradePage{Total: int64(raw.Total)}
	result.Trades = make([]domain.Trade, 0, len(raw.List))
	for _, t := range raw.List {
		result.Trades = append(result.Trades, t.toDomain())
	}
	return result, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// envelope is the upstream response wrapper. The payload usually nests under
// "result" but some endpoints return it at the top level, and errno is
// omitted entirely on success, so every field is optional.
type envelope struct {
	Errno   *int            `json:"errno"`
	Errmsg  string          `json:"errmsg"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// get performs a GET against the upstream and returns the unwrapped JSON
// payload. The response is validated in order: content type, envelope error
// code, HTTP status. Non-JSON bodies (typically HTML error pages) are
// surfaced as errors without any parse attempt.
func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("upstream response", "path", req.URL.Path, "status", resp.StatusCode, "bytes", len(body))

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		text := strings.TrimSpace(string(body))
		if text == "" {
			text = "non-JSON response from upstream"
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrUpstream, text)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	if (env.Errno != nil && *env.Errno != 0) || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errno := 0
		if env.Errno != nil {
			errno = *env.Errno
		}
		msg := env.Errmsg
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = "request failed"
		}
		return nil, &APIError{Errno: errno, Status: resp.StatusCode, Message: msg}
	}

	// Prefer the nested result; some endpoints return the payload unwrapped.
	if len(env.Result) > 0 && string(env.Result) != "null" {
		return env.Result, nil
	}
	return body, nil
}

// IsNotFound reports whether err means the requested entity does not exist
// upstream.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
