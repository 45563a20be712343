package domain

// Trade is a public trade execution for a market, passed through from
// upstream without reinterpretation.
type Trade struct {
	TradeID   string  `json:"trade_id"`
	OrderID   string  `json:"order_id"`
	MarketID  int64   `json:"market_id"`
	TokenID   string  `json:"token_id"`
	Side      string  `json:"side"`
	Price     float64 `json:"price"`
	Amount    float64 `json:"amount"`
	Fee       float64 `json:"fee"`
	Timestamp int64   `json:"timestamp"`
	TxHash    string  `json:"tx_hash"`
}

// TradePage is one page of a market's public trade history.
type TradePage struct {
	Trades []Trade `json:"trades"`
	Total  int64   `json:"total"`
}
