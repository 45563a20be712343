package opinion

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/opinionterm/opiniond/internal/domain"
)

// flexFloat decodes a JSON number that the upstream sometimes quotes.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

// flexInt decodes a JSON integer that the upstream sometimes quotes.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(v)
	return nil
}

// apiMarket mirrors the upstream market object. Child markets use the same
// shape recursively, so categorical parents decode in one pass.
type apiMarket struct {
	MarketID     flexInt     `json:"marketId"`
	MarketTitle  string      `json:"marketTitle"`
	MarketType   flexInt     `json:"marketType"`
	Status       string      `json:"status"`
	StatusEnum   flexInt     `json:"statusEnum"`
	ChainID      flexInt     `json:"chainId"`
	YesTokenID   string      `json:"yesTokenId"`
	NoTokenID    string      `json:"noTokenId"`
	ConditionID  string      `json:"conditionId"`
	QuestionID   string      `json:"questionId"`
	YesLabel     string      `json:"yesLabel"`
	NoLabel      string      `json:"noLabel"`
	Volume       flexFloat   `json:"volume"`
	Volume24h    flexFloat   `json:"volume24h"`
	Volume7d     flexFloat   `json:"volume7d"`
	CutoffAt     flexInt     `json:"cutoffAt"`
	ResolvedAt   flexInt     `json:"resolvedAt"`
	CreatedAt    flexInt     `json:"createdAt"`
	Rules        string      `json:"rules"`
	QuoteToken   string      `json:"quoteToken"`
	ThumbnailURL string      `json:"marketThumbnailUrl"`
	CoverURL     string      `json:"marketCoverUrl"`
	Image        string      `json:"image"`
	Icon         string      `json:"icon"`
	ChildMarkets []apiMarket `json:"childMarkets"`
}

func (a apiMarket) toDomain() domain.Market {
	m := domain.Market{
		ID:           int64(a.MarketID),
		Title:        a.MarketTitle,
		Type:         domain.MarketType(a.MarketType),
		Status:       a.Status,
		StatusEnum:   int(a.StatusEnum),
		ChainID:      int64(a.ChainID),
		YesTokenID:   a.YesTokenID,
		NoTokenID:    a.NoTokenID,
		ConditionID:  a.ConditionID,
		QuestionID:   a.QuestionID,
		YesLabel:     a.YesLabel,
		NoLabel:      a.NoLabel,
		Volume:       float64(a.Volume),
		Volume24h:    float64(a.Volume24h),
		Volume7d:     float64(a.Volume7d),
		CutoffAt:     int64(a.CutoffAt),
		ResolvedAt:   int64(a.ResolvedAt),
		CreatedAt:    int64(a.CreatedAt),
		Rules:        a.Rules,
		QuoteToken:   a.QuoteToken,
		ThumbnailURL: a.ThumbnailURL,
		CoverURL:     a.CoverURL,
		Image:        a.Image,
		Icon:         a.Icon,
	}
	if len(a.ChildMarkets) > 0 {
		m.Children = make([]domain.Market, 0, len(a.ChildMarkets))
		for _, c := range a.ChildMarkets {
			m.Children = append(m.Children, c.toDomain())
		}
	}
	return m
}

// apiMarketList is the paginated listing payload.
type apiMarketList struct {
	List  []apiMarket `json:"list"`
	Total flexInt     `json:"total"`
}

func (l apiMarketList) toDomain() domain.MarketPage {
	page := domain.MarketPage{Total: int64(l.Total)}
	page.List = make([]domain.Market, 0, len(l.List))
	for _, m := range l.List {
		page.List = append(page.List, m.toDomain())
	}
	return page
}

// rawOrderbook carries the book exactly as the upstream serves it: string
// prices and sizes, in no guaranteed order.
type rawOrderbook struct {
	Bids []RawLevel `json:"bids"`
	Asks []RawLevel `json:"asks"`
}

// rawPriceHistory is the sparse last-trade price series.
type rawPriceHistory struct {
	History []RawPricePoint `json:"history"`
}

type rawLatestPrice struct {
	TokenID string    `json:"token_id"`
	Price   flexFloat `json:"price"`
}

// rawTrade mirrors one upstream trade record.
type rawTrade struct {
	TradeID   string    `json:"tradeId"`
	OrderID   string    `json:"orderId"`
	MarketID  flexInt   `json:"marketId"`
	TokenID   string    `json:"tokenId"`
	Side      string    `json:"side"`
	Price     flexFloat `json:"price"`
	Amount    flexFloat `json:"amount"`
	Fee       flexFloat `json:"fee"`
	Timestamp flexInt   `json:"timestamp"`
	TxHash    string    `json:"txHash"`
}

func (t rawTrade) toDomain() domain.Trade {
	return domain.Trade{
		TradeID:   t.TradeID,
		OrderID:   t.OrderID,
		MarketID:  int64(t.MarketID),
		TokenID:   t.TokenID,
		Side:      t.Side,
		Price:     float64(t.Price),
		Amount:    float64(t.Amount),
		Fee:       float64(t.Fee),
		Timestamp: int64(t.Timestamp),
		TxHash:    t.TxHash,
	}
}

type rawTradeList struct {
	List  []rawTrade `json:"list"`
	Total flexInt    `json:"total"`
}

var _ json.Unmarshaler = (*flexFloat)(nil)
var _ json.Unmarshaler = (*flexInt)(nil)
