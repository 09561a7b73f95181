package volume

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-intel/internal/domain"
)

var now = time.Unix(1_700_000_000, 0)

func trade(offsetSec int64, sol float64, buy bool, user string) domain.Trade {
	return domain.Trade{
		SolAmount: uint64(sol * 1e9),
		IsBuy:     buy,
		User:      user,
		Timestamp: now.Unix() - offsetSec,
	}
}

func TestAnalyze_Empty(t *testing.T) {
	res := Analyze(nil, nil, now)
	require.Len(t, res, 3)
	for _, w := range DefaultBuckets {
		r := res[w]
		assert.Equal(t, w, r.BucketMinutes)
		assert.Zero(t, r.Volume)
		assert.Zero(t, r.Volatility)
		assert.NotNil(t, r.Periods)
		assert.Empty(t, r.Periods)
	}
}

func TestAnalyze_OnlyStaleTrades(t *testing.T) {
	res := AnalyzeWidth([]domain.Trade{trade(3600+1, 5, true, "a")}, 15, now)
	assert.Empty(t, res.Periods)
	assert.Zero(t, res.Volume)
}

func TestAnalyze_OneTradePerWindow(t *testing.T) {
	var trades []domain.Trade
	for i := int64(0); i < 4; i++ {
		trades = append(trades, trade(i*900+60, 50, true, "same-user"))
	}

	res := AnalyzeWidth(trades, 15, now)
	require.Len(t, res.Periods, 4)
	for i, p := range res.Periods {
		assert.Equal(t, 50.0, p.TotalVolume, "window %d", i)
		assert.Equal(t, 50.0, p.BuyVolume)
		assert.Zero(t, p.SellVolume)
		assert.LessOrEqual(t, p.UserCount, 1)
	}
	assert.Equal(t, 50.0, res.Volume)
	assert.Zero(t, res.Volatility)
}

func TestAnalyze_WindowEdges(t *testing.T) {
	trades := []domain.Trade{
		trade(0, 1, true, "a"),    // at now: window 0
		trade(900, 2, false, "b"), // start of window 0 is exclusive: window 1
		trade(901, 4, true, "c"),  // window 1
		trade(3600, 8, true, "d"), // start of lookback, exclusive
		trade(-10, 16, true, "e"), // future
	}

	res := AnalyzeWidth(trades, 15, now)
	require.Len(t, res.Periods, 4)
	assert.Equal(t, 1.0, res.Periods[0].TotalVolume)
	assert.Equal(t, 1, res.Periods[0].UserCount)
	assert.Equal(t, 6.0, res.Periods[1].TotalVolume)
	assert.Equal(t, 4.0, res.Periods[1].BuyVolume)
	assert.Equal(t, 2.0, res.Periods[1].SellVolume)
	assert.Equal(t, 2, res.Periods[1].UserCount)
	assert.Zero(t, res.Periods[2].TotalVolume)
	assert.Zero(t, res.Periods[3].TotalVolume)

	assert.Equal(t, "2023-11-14T22:13:20Z", res.Periods[0].EndTime)
	assert.Equal(t, "2023-11-14T21:58:20Z", res.Periods[0].StartTime)
	assert.Equal(t, res.Periods[0].StartTime, res.Periods[1].EndTime)
}

func TestAnalyze_Volatility(t *testing.T) {
	trades := []domain.Trade{
		trade(60, 4, true, "a"),
		trade(900+60, 2, true, "a"),
	}
	res := AnalyzeWidth(trades, 15, now)
	// volumes 4,2,0,0: mean 1.5, variance (6.25+0.25+2.25+2.25)/4
	assert.InDelta(t, 1.6583, res.Volatility, 1e-4)
}

func TestAnalyze_WindowSumsMatchTrades(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 20; run++ {
		var trades []domain.Trade
		for i := 0; i < 200; i++ {
			trades = append(trades, domain.Trade{
				SolAmount: uint64(rng.Int63n(5e9)),
				IsBuy:     rng.Intn(2) == 0,
				User:      fmt.Sprintf("u%d", rng.Intn(10)),
				Timestamp: now.Unix() - rng.Int63n(4*1800),
			})
		}

		for _, w := range []int{15, 30} {
			res := AnalyzeWidth(trades, w, now)
			period := int64(w * 60)
			for i, p := range res.Periods {
				hi := now.Unix() - int64(i)*period
				lo := hi - period
				var lamports uint64
				for _, tr := range trades {
					if tr.Timestamp > lo && tr.Timestamp <= hi {
						lamports += tr.SolAmount
					}
				}
				assert.InDelta(t, float64(lamports)/1e9, p.TotalVolume, 1e-6)
				assert.InDelta(t, p.BuyVolume+p.SellVolume, p.TotalVolume, 1e-9)
			}
		}
	}
}

func TestSnapshots(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	trades := []domain.Trade{
		{SolAmount: 2_000_000_000, IsBuy: true, User: "a", Timestamp: now.Unix() - 60},
		{SolAmount: 1_000_000_000, User: "b", Timestamp: now.Unix() - 30},
	}

	snaps := Snapshots("mint", Analyze(trades, []int{60, 15}, now), now)
	require.Len(t, snaps, 2)
	assert.Equal(t, 15, snaps[0].BucketMinutes)
	assert.Equal(t, 60, snaps[1].BucketMinutes)
	assert.Equal(t, "mint", snaps[0].Mint)
	assert.InDelta(t, 3.0, snaps[0].Volume, 1e-9)
	assert.InDelta(t, 2.0, snaps[0].BuyVolume, 1e-9)
	assert.InDelta(t, 1.0, snaps[0].SellVolume, 1e-9)
	assert.Equal(t, 2, snaps[0].UserCount)
	assert.True(t, now.Equal(snaps[0].TakenAt))

	assert.Empty(t, Snapshots("mint", nil, now))
}
