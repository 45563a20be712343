package domain

// MarketType distinguishes the two market shapes served by the Opinion API.
type MarketType int

const (
	// MarketTypeBinary is a two-outcome market carrying its own token IDs.
	MarketTypeBinary MarketType = 0
	// MarketTypeCategorical is a multi-outcome market whose outcomes live in
	// child markets; the parent itself never carries outcome tokens.
	MarketTypeCategorical MarketType = 1
)

// Market represents one Opinion prediction-market instrument. For categorical
// markets, Children holds the ordered child sub-markets; for children,
// ParentID references the owning categorical market (relation only, no
// ownership).
type Market struct {
	ID         int64      `json:"marketId"`
	Title      string     `json:"marketTitle"`
	Type       MarketType `json:"marketType"`
	Status     string     `json:"status"`
	StatusEnum int        `json:"statusEnum,omitempty"`
	ChainID    int64      `json:"chainId"`

	// Outcome token IDs. Absent from the bulk listing endpoint; filled in by
	// enrichment and treated as immutable once set.
	YesTokenID string `json:"yesTokenId,omitempty"`
	NoTokenID  string `json:"noTokenId,omitempty"`

	ConditionID string `json:"conditionId,omitempty"`
	QuestionID  string `json:"questionId,omitempty"`
	YesLabel    string `json:"yesLabel,omitempty"`
	NoLabel     string `json:"noLabel,omitempty"`

	Volume    float64 `json:"volume,omitempty"`
	Volume24h float64 `json:"volume24h,omitempty"`
	Volume7d  float64 `json:"volume7d,omitempty"`

	// Unix-second timestamps passed through from upstream.
	CutoffAt   int64 `json:"cutoffAt,omitempty"`
	ResolvedAt int64 `json:"resolvedAt,omitempty"`
	CreatedAt  int64 `json:"createdAt,omitempty"`

	Rules      string `json:"rules,omitempty"`
	QuoteToken string `json:"quoteToken,omitempty"`

	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	CoverURL     string `json:"coverUrl,omitempty"`
	Image        string `json:"image,omitempty"`
	Icon         string `json:"icon,omitempty"`

	Children []Market `json:"childMarkets,omitempty"`
	ParentID int64    `json:"parentMarketId,omitempty"`
}

// HasTokens reports whether both outcome token IDs are present.
func (m *Market) HasTokens() bool {
	return m.YesTokenID != "" && m.NoTokenID != ""
}

// Enrichable reports whether a detail lookup could fill in missing token IDs:
// a binary market missing either token, or a categorical market with any
// child missing one.
func (m *Market) Enrichable() bool {
	switch m.Type {
	case MarketTypeBinary:
		return !m.HasTokens()
	case MarketTypeCategorical:
		for i := range m.Children {
			if !m.Children[i].HasTokens() {
				return true
			}
		}
	}
	return false
}

// MarketPage is one page of the upstream market listing.
type MarketPage struct {
	List  []Market `json:"list"`
	Total int64    `json:"total"`
}
