// Package volume buckets bonding-curve trades into trailing windows.
package volume

import (
	"math"
	"sort"
	"time"

	"token-intel/internal/domain"
	"token-intel/internal/solana"
)

// Periods is the number of trailing windows per bucket width.
const Periods = 4

// DefaultBuckets are the widths, in minutes, reported by the volume endpoint.
var DefaultBuckets = []int{15, 30, 60}

// Analyze computes a VolumeResult for every bucket width.
func Analyze(trades []domain.Trade, bucketMinutes []int, now time.Time) map[int]domain.VolumeResult {
	if len(bucketMinutes) == 0 {
		bucketMinutes = DefaultBuckets
	}
	out := make(map[int]domain.VolumeResult, len(bucketMinutes))
	for _, w := range bucketMinutes {
		out[w] = AnalyzeWidth(trades, w, now)
	}
	return out
}

// AnalyzeWidth splits trades into Periods windows of width minutes ending at
// now, newest first. Window i covers (now-(i+1)w, now-iw]. Trades outside the
// lookback are ignored; with none left the result has zero volume and no periods.
func AnalyzeWidth(trades []domain.Trade, minutes int, now time.Time) domain.VolumeResult {
	empty := domain.VolumeResult{BucketMinutes: minutes, Periods: []domain.VolumePeriod{}}
	if minutes <= 0 {
		return empty
	}

	period := int64(minutes) * 60
	end := now.Unix()
	oldest := end - Periods*period

	type window struct {
		buy, sell uint64 // lamports
		users     map[string]struct{}
	}
	windows := make([]window, Periods)
	for i := range windows {
		windows[i].users = make(map[string]struct{})
	}

	relevant := 0
	for _, t := range trades {
		if t.Timestamp < oldest || t.Timestamp > end {
			continue
		}
		relevant++

		// Windows are open at the start, so a trade exactly at oldest counts
		// toward the lookback but falls in no window.
		d := end - t.Timestamp
		if d >= Periods*period {
			continue
		}
		w := &windows[d/period]
		if t.IsBuy {
			w.buy += t.SolAmount
		} else {
			w.sell += t.SolAmount
		}
		w.users[t.User] = struct{}{}
	}
	if relevant == 0 {
		return empty
	}

	res := domain.VolumeResult{
		BucketMinutes: minutes,
		Periods:       make([]domain.VolumePeriod, Periods),
	}
	totals := make([]float64, Periods)
	for i, w := range windows {
		pEnd := end - int64(i)*period
		buy := toSOL(w.buy)
		sell := toSOL(w.sell)
		totals[i] = buy + sell
		res.Periods[i] = domain.VolumePeriod{
			StartTime:   time.Unix(pEnd-period, 0).UTC().Format(time.RFC3339),
			EndTime:     time.Unix(pEnd, 0).UTC().Format(time.RFC3339),
			BuyVolume:   buy,
			SellVolume:  sell,
			TotalVolume: totals[i],
			UserCount:   len(w.users),
		}
	}
	res.Volume = totals[0]
	res.Volatility = populationStddev(totals)
	return res
}

// Snapshots flattens results into one persistable row per bucket width,
// ordered by width.
func Snapshots(mint string, results map[int]domain.VolumeResult, takenAt time.Time) []*domain.VolumeSnapshot {
	widths := make([]int, 0, len(results))
	for w := range results {
		widths = append(widths, w)
	}
	sort.Ints(widths)

	out := make([]*domain.VolumeSnapshot, 0, len(widths))
	for _, w := range widths {
		r := results[w]
		snap := &domain.VolumeSnapshot{
			Mint:          mint,
			BucketMinutes: w,
			TakenAt:       takenAt.UTC(),
			Volume:        r.Volume,
			Volatility:    r.Volatility,
		}
		if len(r.Periods) > 0 {
			snap.BuyVolume = r.Periods[0].BuyVolume
			snap.SellVolume = r.Periods[0].SellVolume
			snap.UserCount = r.Periods[0].UserCount
		}
		out = append(out, snap)
	}
	return out
}

func toSOL(lamports uint64) float64 {
	return float64(lamports) / float64(solana.LamportsPerSOL)
}

func populationStddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return math.Sqrt(sq / float64(len(xs)))
}
