// Package social fetches posts about a token and summarizes their volume,
// engagement and sentiment.
package social

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"token-intel/internal/domain"
	"token-intel/internal/httpclient"
	"token-intel/internal/logger"
)

// Defaults for the search client.
const (
	DefaultBaseURL    = "https://api.twitterapi.io"
	DefaultPageDelay  = 200 * time.Millisecond
	DefaultRetryDelay = 200 * time.Millisecond
	DefaultMaxRetries = 3
	DefaultLimit      = 200
)

// Config configures Client.
type Config struct {
	BaseURL    string
	APIKey     string
	PageDelay  time.Duration
	RetryDelay time.Duration // first retry wait, doubled on each further retry
	MaxRetries int
}

// Client pages through the post search API.
type Client struct {
	cfg  Config
	http *httpclient.Client
	log  *logrus.Entry
}

// APIKeyHeader carries Config.APIKey on every search request.
const APIKeyHeader = "X-API-Key"

// NewClient creates a Client. Zero config fields take defaults. A negative
// PageDelay or MaxRetries disables the delay or the retries. opts tune the
// underlying HTTP client; transport retries stay off and the API key header
// is always set, whatever opts say.
func NewClient(cfg Config, log *logrus.Entry, opts ...httpclient.Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	switch {
	case cfg.PageDelay == 0:
		cfg.PageDelay = DefaultPageDelay
	case cfg.PageDelay < 0:
		cfg.PageDelay = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = DefaultMaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	opts = append(opts, httpclient.WithRetryMax(0), httpclient.WithHeader(APIKeyHeader, cfg.APIKey))
	return &Client{cfg: cfg, http: httpclient.New("social", opts...), log: logger.OrDiscard(log, "social")}
}

type searchPage struct {
	Tweets      []tweet `json:"tweets"`
	HasNextPage bool    `json:"has_next_page"`
	NextCursor  string  `json:"next_cursor"`
}

type tweet struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Text         string `json:"text"`
	CreatedAt    string `json:"createdAt"`
	LikeCount    int64  `json:"likeCount"`
	RetweetCount int64  `json:"retweetCount"`
	ReplyCount   int64  `json:"replyCount"`
	QuoteCount   int64  `json:"quoteCount"`
	ViewCount    int64  `json:"viewCount"`
	Author       struct {
		ID             string `json:"id"`
		UserName       string `json:"userName"`
		Name           string `json:"name"`
		Followers      int64  `json:"followers"`
		IsBlueVerified bool   `json:"isBlueVerified"`
	} `json:"author"`
}

func (t tweet) toPost() domain.Post {
	// Posts with an unparseable timestamp keep the zero time and fall
	// outside every rollup window.
	created, _ := time.Parse(time.RubyDate, t.CreatedAt)
	return domain.Post{
		ID:        t.ID,
		Text:      t.Text,
		URL:       t.URL,
		CreatedAt: created.UTC(),
		Author: domain.PostAuthor{
			ID:        t.Author.ID,
			UserName:  t.Author.UserName,
			Name:      t.Author.Name,
			Followers: t.Author.Followers,
			Verified:  t.Author.IsBlueVerified,
		},
		LikeCount:    t.LikeCount,
		RetweetCount: t.RetweetCount,
		ReplyCount:   t.ReplyCount,
		QuoteCount:   t.QuoteCount,
		ViewCount:    t.ViewCount,
	}
}

// Search returns up to limit of the latest posts matching query. Pages are
// requested one at a time with PageDelay before each. A page that still fails
// after MaxRetries retries aborts the whole search.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.Post, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", domain.ErrValidation)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	var posts []domain.Post
	cursor := ""
	for hasNext := true; hasNext && len(posts) < limit; {
		if err := sleep(ctx, c.cfg.PageDelay); err != nil {
			return nil, err
		}

		page, err := c.fetchPage(ctx, query, cursor)
		if err != nil {
			return nil, err
		}
		if len(page.Tweets) == 0 {
			break
		}
		for _, t := range page.Tweets {
			posts = append(posts, t.toPost())
		}
		hasNext = page.HasNextPage && page.NextCursor != ""
		cursor = page.NextCursor
	}

	if len(posts) > limit {
		posts = posts[:limit]
	}
	c.log.WithFields(logrus.Fields{"query": query, "posts": len(posts)}).Debug("search complete")
	return posts, nil
}

func (c *Client) fetchPage(ctx context.Context, query, cursor string) (*searchPage, error) {
	q := url.Values{}
	q.Set("queryType", "Latest")
	q.Set("query", query)
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := c.cfg.BaseURL + "/twitter/tweet/advanced_search?" + q.Encode()

	var page searchPage
	attempt := 0
	op := func() error {
		attempt++
		page = searchPage{}
		return c.http.GetJSON(ctx, endpoint, &page)
	}
	notify := func(err error, wait time.Duration) {
		c.log.WithFields(logrus.Fields{
			"attempt": attempt,
			"wait":    wait.String(),
		}).WithError(err).Warn("search request failed, retrying")
	}

	if err := backoff.RetryNotify(op, c.retryPolicy(ctx), notify); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("search failed after %d retries: %w", c.cfg.MaxRetries, err)
	}
	return &page, nil
}

// retryPolicy waits RetryDelay * 2^(n-1) before retry n.
func (c *Client) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = c.cfg.RetryDelay << 10
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxRetries)), ctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
