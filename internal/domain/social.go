package domain

import "time"

// PostAuthor is the author of a social post.
type PostAuthor struct {
	ID        string `json:"id"`
	UserName  string `json:"userName"`
	Name      string `json:"name"`
	Followers int64  `json:"followers"`
	Verified  bool   `json:"isBlueVerified"`
}

// Post is one social post returned by the search provider.
type Post struct {
	ID           string     `json:"id"`
	Text         string     `json:"text"`
	URL          string     `json:"url"`
	CreatedAt    time.Time  `json:"createdAt"`
	Author       PostAuthor `json:"author"`
	LikeCount    int64      `json:"likeCount"`
	RetweetCount int64      `json:"retweetCount"`
	ReplyCount   int64      `json:"replyCount"`
	QuoteCount   int64      `json:"quoteCount"`
	ViewCount    int64      `json:"viewCount"`
}

// IntervalCount is the post count of one sub-interval.
type IntervalCount struct {
	Time  string `json:"time"` // HH:MM UTC of interval end
	Count int    `json:"count"`
}

// Engagement sums or averages engagement counters.
type Engagement struct {
	Likes    float64 `json:"likes"`
	Retweets float64 `json:"retweets"`
	Replies  float64 `json:"replies"`
	Quotes   float64 `json:"quotes"`
	Views    float64 `json:"views"`
}

// WindowRollup summarizes posts in one trailing window.
type WindowRollup struct {
	Window          string          `json:"window"` // 1h, 6h, 24h
	Count           int             `json:"count"`
	PreviousCount   int             `json:"previousCount"`
	ChangePercent   float64         `json:"changePercent"`
	Intervals       []IntervalCount `json:"intervals"`
	TotalEngagement Engagement      `json:"totalEngagement"`
	AvgEngagement   Engagement      `json:"avgEngagement"`
}

// SentimentScore is the score of a single post. Score is nil when the
// generator returned no entry for the post.
type SentimentScore struct {
	PostID string   `json:"postId"`
	Score  *float64 `json:"score"`
}

// SentimentSummary tallies scores.
type SentimentSummary struct {
	Positive int              `json:"positive"`
	Negative int              `json:"negative"`
	Neutral  int              `json:"neutral"`
	Total    int              `json:"total"`
	Label    string           `json:"label"`
	Scores   []SentimentScore `json:"scores,omitempty"`
}

// Sentiment labels.
const (
	SentimentBullish = "Bullish"
	SentimentBearish = "Bearish"
	SentimentNeutral = "Neutral"
)

// SocialReport is the combined output of the social aggregator.
type SocialReport struct {
	Query     string           `json:"query"`
	PostCount int              `json:"postCount"`
	Rollups   []WindowRollup   `json:"rollups"`
	Sentiment SentimentSummary `json:"sentiment"`
	Posts     []Post           `json:"posts,omitempty"`
}
