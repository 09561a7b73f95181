package social

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"token-intel/internal/domain"
	"token-intel/internal/llm"
	"token-intel/internal/logger"
)

// Score bounds requested from the model.
const (
	MinScore = -10.0
	MaxScore = 10.0
)

const sentimentPrompt = `Analyze the sentiment of each post about a Solana meme coin in the array below.
Give every post a score from -10 (extremely negative) to 10 (extremely positive), 0 being neutral.
Bullish: price increases, launches, influencer endorsements, community excitement.
Bearish: price declines, rug pulls, scams, negative ecosystem news.
Neutral: general discussion, exchange promotions, signal group adverts.
Return exactly one result per post, in input order.

Posts: %s`

var sentimentSchema = func() *llm.Schema {
	lo, hi := MinScore, MaxScore
	return llm.ArrayOf(&llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"score": {
				Type:        llm.TypeNumber,
				Description: "Sentiment score from -10 (most negative) to 10 (most positive), 0 is neutral",
				Minimum:     &lo,
				Maximum:     &hi,
			},
		},
		Required: []string{"score"},
	})
}()

// Scorer rates posts with one structured-generation call per batch.
type Scorer struct {
	gen llm.Generator
	log *logrus.Entry
}

// NewScorer creates a Scorer.
func NewScorer(gen llm.Generator, log *logrus.Entry) *Scorer {
	return &Scorer{gen: gen, log: logger.OrDiscard(log, "sentiment")}
}

// Score rates every post and tallies the results. Posts the model returned no
// score for are reported with a nil score and counted as neutral.
func (s *Scorer) Score(ctx context.Context, posts []domain.Post) (domain.SentimentSummary, error) {
	if len(posts) == 0 {
		return domain.SentimentSummary{}, fmt.Errorf("%w: sentiment needs at least one post", domain.ErrValidation)
	}

	texts := make([]string, len(posts))
	for i, p := range posts {
		texts[i] = p.Text
	}
	encoded, err := json.Marshal(texts)
	if err != nil {
		return domain.SentimentSummary{}, fmt.Errorf("encode posts: %w", err)
	}

	var results []struct {
		Score *float64 `json:"score"`
	}
	usage, err := s.gen.GenerateStructured(ctx, fmt.Sprintf(sentimentPrompt, encoded), sentimentSchema, &results)
	if err != nil {
		return domain.SentimentSummary{}, fmt.Errorf("sentiment analysis: %w", err)
	}
	if len(results) != len(posts) {
		s.log.WithFields(logrus.Fields{
			"posts":  len(posts),
			"scores": len(results),
		}).Warn("score count does not match post count")
	}

	scores := make([]domain.SentimentScore, len(posts))
	for i, p := range posts {
		scores[i] = domain.SentimentScore{PostID: p.ID}
		if i < len(results) && results[i].Score != nil && !math.IsNaN(*results[i].Score) {
			v := math.Max(MinScore, math.Min(MaxScore, *results[i].Score))
			scores[i].Score = &v
		}
	}

	sum := Tally(scores)
	s.log.WithFields(logrus.Fields{
		"posts":  len(posts),
		"label":  sum.Label,
		"tokens": usage.TotalTokens,
	}).Debug("sentiment scored")
	return sum, nil
}

// Tally classifies scores as positive (>0), negative (<0) or neutral and
// derives the overall label.
func Tally(scores []domain.SentimentScore) domain.SentimentSummary {
	sum := domain.SentimentSummary{Total: len(scores), Scores: scores}
	for _, sc := range scores {
		switch {
		case sc.Score == nil || *sc.Score == 0:
			sum.Neutral++
		case *sc.Score > 0:
			sum.Positive++
		default:
			sum.Negative++
		}
	}
	sum.Label = Label(sum.Positive, sum.Negative)
	return sum
}

// Label is Bullish when positives outnumber negatives, Bearish for the
// reverse, and Neutral otherwise.
func Label(positive, negative int) string {
	switch {
	case positive > negative:
		return domain.SentimentBullish
	case negative > positive:
		return domain.SentimentBearish
	default:
		return domain.SentimentNeutral
	}
}
