package social

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"token-intel/internal/domain"
	"token-intel/internal/logger"
)

// Searcher finds posts matching a query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Post, error)
}

// AggregatorConfig configures Aggregator.
type AggregatorConfig struct {
	Limit         int      // posts per query
	IgnoreAuthors []string // author IDs dropped before analysis
	IncludePosts  bool     // attach fetched posts to the report
}

// Aggregator fetches posts, rolls them up by window, and scores sentiment.
type Aggregator struct {
	search Searcher
	scorer *Scorer
	cfg    AggregatorConfig
	ignore map[string]struct{}
	now    func() time.Time
	log    *logrus.Entry
}

// NewAggregator creates an Aggregator.
func NewAggregator(search Searcher, scorer *Scorer, cfg AggregatorConfig, log *logrus.Entry) *Aggregator {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	ignore := make(map[string]struct{}, len(cfg.IgnoreAuthors))
	for _, id := range cfg.IgnoreAuthors {
		ignore[id] = struct{}{}
	}
	return &Aggregator{
		search: search,
		scorer: scorer,
		cfg:    cfg,
		ignore: ignore,
		now:    time.Now,
		log:    logger.OrDiscard(log, "social"),
	}
}

// Analyze builds the social report for query.
func (a *Aggregator) Analyze(ctx context.Context, query string) (*domain.SocialReport, error) {
	fetched, err := a.search.Search(ctx, query, a.cfg.Limit)
	if err != nil {
		return nil, err
	}

	posts := make([]domain.Post, 0, len(fetched))
	for _, p := range fetched {
		if _, skip := a.ignore[p.Author.ID]; !skip {
			posts = append(posts, p)
		}
	}

	report := &domain.SocialReport{
		Query:     query,
		PostCount: len(posts),
		Rollups:   Rollups(posts, a.now()),
		Sentiment: domain.SentimentSummary{Label: domain.SentimentNeutral},
	}
	if len(posts) > 0 {
		sentiment, err := a.scorer.Score(ctx, posts)
		if err != nil {
			return nil, err
		}
		report.Sentiment = sentiment
	}
	if a.cfg.IncludePosts {
		report.Posts = posts
	}

	a.log.WithFields(logrus.Fields{
		"query":     query,
		"posts":     len(posts),
		"sentiment": report.Sentiment.Label,
	}).Info("social analysis complete")
	return report, nil
}
