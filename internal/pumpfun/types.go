package pumpfun

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Coin is the pump.fun coin record returned by /coins/{mint}, /coins/similar and
// /coins/user-created-coins.
type Coin struct {
	Mint                   string   `json:"mint"`
	Name                   string   `json:"name"`
	Symbol                 string   `json:"symbol"`
	Description            string   `json:"description"`
	ImageURI               string   `json:"image_uri"`
	MetadataURI            string   `json:"metadata_uri"`
	Twitter                *string  `json:"twitter"`
	Telegram               *string  `json:"telegram"`
	Website                *string  `json:"website"`
	BondingCurve           string   `json:"bonding_curve"`
	AssociatedBondingCurve string   `json:"associated_bonding_curve"`
	Creator                string   `json:"creator"`
	CreatedTimestamp       int64    `json:"created_timestamp"` // ms
	RaydiumPool            *string  `json:"raydium_pool"`
	Complete               bool     `json:"complete"`
	VirtualSolReserves     FlexUint `json:"virtual_sol_reserves"`
	VirtualTokenReserves   FlexUint `json:"virtual_token_reserves"`
	RealSolReserves        FlexUint `json:"real_sol_reserves"`
	RealTokenReserves      FlexUint `json:"real_token_reserves"`
	TotalSupply            FlexUint `json:"total_supply"`
	ShowName               bool     `json:"show_name"`
	MarketCap              float64  `json:"market_cap"`
	USDMarketCap           float64  `json:"usd_market_cap"`
	NSFW                   bool     `json:"nsfw"`
	ReplyCount             int      `json:"reply_count"`
	LastTradeTimestamp     int64    `json:"last_trade_timestamp"`
}

// trade is the wire shape of /trades/all/{mint}.
type trade struct {
	Signature   string   `json:"signature"`
	Mint        string   `json:"mint"`
	SolAmount   FlexUint `json:"sol_amount"`
	TokenAmount FlexUint `json:"token_amount"`
	IsBuy       bool     `json:"is_buy"`
	User        string   `json:"user"`
	Timestamp   int64    `json:"timestamp"`
	Slot        *int64   `json:"slot"`
}

// FlexUint decodes a non-negative integer sent as a JSON number, float or string.
type FlexUint uint64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexUint) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	if v, err := strconv.ParseUint(string(data), 10, 64); err == nil {
		*f = FlexUint(v)
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("invalid unsigned amount %q", data)
	}
	*f = FlexUint(v)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f FlexUint) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(f))
}

// String returns the decimal representation.
func (f FlexUint) String() string {
	return strconv.FormatUint(uint64(f), 10)
}
