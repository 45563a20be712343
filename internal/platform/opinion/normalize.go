package opinion

import (
	"sort"
	"strconv"
	"time"

	"github.com/opinionterm/opiniond/internal/domain"
)

// RawLevel is one bid or ask level as served by the upstream, with string
// price and size.
type RawLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// RawPricePoint is one sparse last-trade sample: t is a seconds epoch, p a
// string-encoded price.
type RawPricePoint struct {
	T int64  `json:"t"`
	P string `json:"p"`
}

// NormalizeOrderbook converts raw string levels into a sorted numeric book.
// Levels with unparsable price or size are dropped. Bids sort descending and
// asks ascending, so index 0 on each side is the best price. An empty ask
// side pins BestAsk to 1, the worst possible price for a buyer, so derived
// spreads stay meaningful on illiquid books. This never fails: garbage in
// yields an empty book out.
func NormalizeOrderbook(tokenID string, bids, asks []RawLevel) domain.Orderbook {
	book := domain.Orderbook{
		TokenID:   tokenID,
		Bids:      parseLevels(bids),
		Asks:      parseLevels(asks),
		BestBid:   0,
		BestAsk:   1,
		UpdatedAt: time.Now().UTC(),
	}

	sort.Slice(book.Bids, func(i, j int) bool { return book.Bids[i].Price > book.Bids[j].Price })
	sort.Slice(book.Asks, func(i, j int) bool { return book.Asks[i].Price < book.Asks[j].Price })

	if len(book.Bids) > 0 {
		book.BestBid = book.Bids[0].Price
	}
	if len(book.Asks) > 0 {
		book.BestAsk = book.Asks[0].Price
	}
	book.Spread = book.BestAsk - book.BestBid
	if book.BestBid > 0 {
		book.SpreadPercent = book.Spread / book.BestBid * 100
	}
	return book
}

func parseLevels(raw []RawLevel) []domain.PriceLevel {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for _, l := range raw {
		price, err := strconv.ParseFloat(l.Price, 64)
		if err != nil {
			continue
		}
		amount, err := strconv.ParseFloat(l.Size, 64)
		if err != nil {
			continue
		}
		levels = append(levels, domain.PriceLevel{Price: price, Amount: amount})
	}
	return levels
}

// NormalizeCandles synthesizes OHLC candles from a sparse last-trade price
// series. Each point becomes one candle: open is the previous point's price
// (or the point's own price when there is no previous), close is the point's
// price, high and low bracket the two. Volume is always 0 because the
// upstream series carries no size information.
//
// Points with unparsable prices are dropped before synthesis, and the series
// is re-sorted by time since upstream ordering is not guaranteed.
func NormalizeCandles(points []RawPricePoint) []domain.Candle {
	type sample struct {
		t     int64
		price float64
	}
	samples := make([]sample, 0, len(points))
	for _, p := range points {
		price, err := strconv.ParseFloat(p.P, 64)
		if err != nil {
			continue
		}
		samples = append(samples, sample{t: p.T, price: price})
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].t < samples[j].t })

	candles := make([]domain.Candle, 0, len(samples))
	for i, s := range samples {
		open := s.price
		if i > 0 {
			open = samples[i-1].price
		}
		candles = append(candles, domain.Candle{
			Time:   s.t,
			Open:   open,
			High:   max(open, s.price),
			Low:    min(open, s.price),
			Close:  s.price,
			Volume: 0,
		})
	}
	return candles
}
