package social

import (
	"time"

	"token-intel/internal/domain"
)

// RollupWindow describes one trailing window and its sub-interval layout.
type RollupWindow struct {
	Name      string
	Length    time.Duration
	Interval  time.Duration
	Intervals int
}

// Windows are the rollups reported for every query.
var Windows = []RollupWindow{
	{Name: "1h", Length: time.Hour, Interval: 10 * time.Minute, Intervals: 6},
	{Name: "6h", Length: 6 * time.Hour, Interval: time.Hour, Intervals: 6},
	{Name: "24h", Length: 24 * time.Hour, Interval: 3 * time.Hour, Intervals: 8},
}

// Rollups summarizes posts for each of Windows relative to now.
func Rollups(posts []domain.Post, now time.Time) []domain.WindowRollup {
	out := make([]domain.WindowRollup, 0, len(Windows))
	for _, w := range Windows {
		out = append(out, Rollup(posts, w, now))
	}
	return out
}

// Rollup counts posts within w.Length of now, compares against the equal
// window before it, and splits the current window into sub-intervals.
func Rollup(posts []domain.Post, w RollupWindow, now time.Time) domain.WindowRollup {
	var current []domain.Post
	previous := 0
	for _, p := range posts {
		age := now.Sub(p.CreatedAt)
		switch {
		case age < 0: // future-dated
		case age <= w.Length:
			current = append(current, p)
		case age <= 2*w.Length:
			previous++
		}
	}

	total, avg := engagement(current)
	return domain.WindowRollup{
		Window:          w.Name,
		Count:           len(current),
		PreviousCount:   previous,
		ChangePercent:   ChangePercent(len(current), previous),
		Intervals:       intervals(current, w, now),
		TotalEngagement: total,
		AvgEngagement:   avg,
	}
}

// ChangePercent is the relative change from previous to current, in percent.
// With no previous posts it is 100 if there are current posts, else 0.
func ChangePercent(current, previous int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}

// intervals returns w.Intervals buckets, oldest first, each labelled with
// its end time. Bucket bounds are inclusive on both sides.
func intervals(posts []domain.Post, w RollupWindow, now time.Time) []domain.IntervalCount {
	out := make([]domain.IntervalCount, w.Intervals)
	for i := 0; i < w.Intervals; i++ {
		end := now.Add(-time.Duration(i) * w.Interval)
		start := end.Add(-w.Interval)

		count := 0
		for _, p := range posts {
			if !p.CreatedAt.Before(start) && !p.CreatedAt.After(end) {
				count++
			}
		}
		out[w.Intervals-1-i] = domain.IntervalCount{
			Time:  end.UTC().Format("15:04"),
			Count: count,
		}
	}
	return out
}

func engagement(posts []domain.Post) (total, avg domain.Engagement) {
	for _, p := range posts {
		total.Likes += float64(p.LikeCount)
		total.Retweets += float64(p.RetweetCount)
		total.Replies += float64(p.ReplyCount)
		total.Quotes += float64(p.QuoteCount)
		total.Views += float64(p.ViewCount)
	}
	if n := float64(len(posts)); n > 0 {
		avg = domain.Engagement{
			Likes:    total.Likes / n,
			Retweets: total.Retweets / n,
			Replies:  total.Replies / n,
			Quotes:   total.Quotes / n,
			Views:    total.Views / n,
		}
	}
	return total, avg
}
