package domain

import "time"

// Trade is one bonding-curve buy or sell.
type Trade struct {
	Signature   string `json:"signature"`
	Mint        string `json:"mint"`
	SolAmount   uint64 `json:"sol_amount"`   // lamports
	TokenAmount uint64 `json:"token_amount"` // raw units
	IsBuy       bool   `json:"is_buy"`
	User        string `json:"user"`
	Timestamp   int64  `json:"timestamp"` // unix seconds
	Slot        *int64 `json:"slot,omitempty"`
}

// VolumePeriod aggregates trades inside one (start, end] window.
type VolumePeriod struct {
	StartTime   string  `json:"startTime"` // RFC3339
	EndTime     string  `json:"endTime"`   // RFC3339
	BuyVolume   float64 `json:"buyVolume"`
	SellVolume  float64 `json:"sellVolume"`
	TotalVolume float64 `json:"totalVolume"`
	UserCount   int     `json:"userCount"`
}

// VolumeResult is the 4-window trailing view for one bucket width.
type VolumeResult struct {
	BucketMinutes int            `json:"bucketMinutes"`
	Volume        float64        `json:"volume"`     // most recent window
	Volatility    float64        `json:"volatility"` // population stddev of window totals
	Periods       []VolumePeriod `json:"periods"`
}

// VolumeSnapshot is one persisted volume analysis for a bucket width.
type VolumeSnapshot struct {
	Mint          string    `json:"mint"`
	BucketMinutes int       `json:"bucketMinutes"`
	TakenAt       time.Time `json:"takenAt"`
	Volume        float64   `json:"volume"` // SOL, most recent window
	BuyVolume     float64   `json:"buyVolume"`
	SellVolume    float64   `json:"sellVolume"`
	UserCount     int       `json:"userCount"`
	Volatility    float64   `json:"volatility"`
}
