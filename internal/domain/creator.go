package domain

// CreatorStats summarizes the tokens a creator launched before. A completed
// coin also counts as rugged or in progress when its market cap says so.
type CreatorStats struct {
	Creator    string `json:"creator"`
	Total      int    `json:"total"`
	Successful int    `json:"successful"` // curve completed
	Rugged     int    `json:"rugged"`     // market cap under rug threshold
	InProgress int    `json:"inProgress"` // market cap in the progress band

	// Filled only when the token lists are requested.
	SuccessTokens  []CreatorToken `json:"successTokens,omitempty"`
	RugTokens      []CreatorToken `json:"rugTokens,omitempty"`
	ProgressTokens []CreatorToken `json:"progressTokens,omitempty"`
}

// CreatorToken identifies one launch in a CreatorStats list.
type CreatorToken struct {
	Mint             string `json:"mint"`
	Name             string `json:"name"`
	Symbol           string `json:"symbol"`
	Image            string `json:"image"`
	CreatedTimestamp int64  `json:"created_timestamp"` // ms
}

// TokenPrice is the price view of a bonding-curve token.
type TokenPrice struct {
	Mint      string  `json:"mint"`
	PriceSOL  float64 `json:"priceSol"`
	PriceUSD  float64 `json:"priceUsd"`
	SolUSD    float64 `json:"solUsd"`
	MarketCap float64 `json:"marketCap"` // USD
	Complete  bool    `json:"complete"`
}
