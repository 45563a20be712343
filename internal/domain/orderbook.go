package domain

import "time"

// PriceLevel is a single price+amount entry in an orderbook.
type PriceLevel struct {
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
}

// Orderbook is a normalized snapshot for one outcome token. Bids are ordered
// descending by price and asks ascending, so index 0 is always the best
// level. BestAsk is 1 when there are no asks (worst-case price on a market
// bounded at 1), and BestBid is 0 when there are no bids.
type Orderbook struct {
	TokenID       string       `json:"token_id"`
	Bids          []PriceLevel `json:"bids"`
	Asks          []PriceLevel `json:"asks"`
	BestBid       float64      `json:"best_bid"`
	BestAsk       float64      `json:"best_ask"`
	Spread        float64      `json:"spread"`
	SpreadPercent float64      `json:"spread_percent"`
	UpdatedAt     time.Time    `json:"last_updated"`
}

// Candle is one OHLC bucket synthesized from sparse last-trade prices.
// Volume is always 0: the upstream source exposes no trade volume.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// PriceHistory is the candle series for one token at one interval.
type PriceHistory struct {
	TokenID  string   `json:"token_id"`
	Interval string   `json:"interval"`
	Candles  []Candle `json:"candles"`
}

// LatestPrice is the most recent price for a token.
type LatestPrice struct {
	TokenID string  `json:"token_id"`
	Price   float64 `json:"price"`
}
