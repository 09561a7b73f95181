// Package pumpfun is a client for the pump.fun frontend REST API.
package pumpfun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"token-intel/internal/domain"
	"token-intel/internal/httpclient"
	"token-intel/internal/logger"
)

// Defaults for the REST client.
const (
	DefaultBaseURL        = "https://frontend-api-v3.pump.fun"
	DefaultTradePageLimit = 200
	DefaultMinTradeSize   = 10000
	DefaultPageDelay      = 300 * time.Millisecond
	DefaultSimilarLimit   = 15
	DefaultCreatorLimit   = 10
)

// Config configures Client.
type Config struct {
	BaseURL        string
	TradePageLimit int
	MinTradeSize   uint64
	PageDelay      time.Duration
	MaxTradePages  int // 0 means unbounded
}

// Client talks to the pump.fun REST API.
type Client struct {
	cfg  Config
	http *httpclient.Client
	log  *logrus.Entry
}

// NewClient creates a client. Zero config fields take defaults.
func NewClient(cfg Config, hc *httpclient.Client, log *logrus.Entry) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TradePageLimit <= 0 {
		cfg.TradePageLimit = DefaultTradePageLimit
	}
	if cfg.MinTradeSize == 0 {
		cfg.MinTradeSize = DefaultMinTradeSize
	}
	if cfg.PageDelay < 0 {
		cfg.PageDelay = 0
	}
	if hc == nil {
		hc = httpclient.New("pumpfun", httpclient.WithHeader("Referer", "https://pump.fun/"))
	}
	return &Client{cfg: cfg, http: hc, log: logger.OrDiscard(log, "pumpfun")}
}

// Coin fetches the coin record for mint.
func (c *Client) Coin(ctx context.Context, mint string) (*Coin, error) {
	var coin Coin
	if err := c.http.GetJSON(ctx, c.cfg.BaseURL+"/coins/"+url.PathEscape(mint), &coin); err != nil {
		return nil, fmt.Errorf("pump.fun coin %s: %w", mint, err)
	}
	if coin.Mint == "" {
		return nil, fmt.Errorf("%w: pump.fun coin %s", domain.ErrNotFound, mint)
	}
	return &coin, nil
}

// Similar fetches coins the platform considers similar to mint.
func (c *Client) Similar(ctx context.Context, mint string, limit int) ([]Coin, error) {
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}
	q := url.Values{}
	q.Set("mint", mint)
	q.Set("limit", fmt.Sprint(limit))

	var coins []Coin
	if err := c.http.GetJSON(ctx, c.cfg.BaseURL+"/coins/similar?"+q.Encode(), &coins); err != nil {
		return nil, fmt.Errorf("pump.fun similar %s: %w", mint, err)
	}
	return coins, nil
}

// CreatedBy fetches the coins launched by creator.
func (c *Client) CreatedBy(ctx context.Context, creator string, limit int) ([]Coin, error) {
	if limit <= 0 {
		limit = DefaultCreatorLimit
	}
	q := url.Values{}
	q.Set("offset", "0")
	q.Set("limit", fmt.Sprint(limit))
	q.Set("includeNsfw", "false")

	endpoint := c.cfg.BaseURL + "/coins/user-created-coins/" + url.PathEscape(creator) + "?" + q.Encode()

	var raw json.RawMessage
	if err := c.http.GetJSON(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("pump.fun coins created by %s: %w", creator, err)
	}
	return decodeCoinList(raw)
}

// decodeCoinList accepts either a bare array or {"coins": [...]}.
func decodeCoinList(raw json.RawMessage) ([]Coin, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var list []Coin
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("%w: coin list: %v", domain.ErrFormat, err)
		}
		return list, nil
	}

	var wrapped struct {
		Coins []Coin `json:"coins"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: coin list: %v", domain.ErrFormat, err)
	}
	return wrapped.Coins, nil
}

// Trades pages through /trades/all/{mint}, newest first, until a short page.
func (c *Client) Trades(ctx context.Context, mint string) ([]domain.Trade, error) {
	var all []domain.Trade
	limit := c.cfg.TradePageLimit

	for page, offset := 0, 0; ; page, offset = page+1, offset+limit {
		if c.cfg.MaxTradePages > 0 && page >= c.cfg.MaxTradePages {
			c.log.WithField("mint", mint).Warn("trade page cap reached")
			break
		}
		if page > 0 && c.cfg.PageDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.cfg.PageDelay):
			}
		}

		q := url.Values{}
		q.Set("limit", fmt.Sprint(limit))
		q.Set("offset", fmt.Sprint(offset))
		q.Set("minimumSize", fmt.Sprint(c.cfg.MinTradeSize))

		var batch []trade
		endpoint := c.cfg.BaseURL + "/trades/all/" + url.PathEscape(mint) + "?" + q.Encode()
		if err := c.http.GetJSON(ctx, endpoint, &batch); err != nil {
			return nil, fmt.Errorf("pump.fun trades %s offset %d: %w", mint, offset, err)
		}

		for _, t := range batch {
			all = append(all, domain.Trade{
				Signature:   t.Signature,
				Mint:        t.Mint,
				SolAmount:   uint64(t.SolAmount),
				TokenAmount: uint64(t.TokenAmount),
				IsBuy:       t.IsBuy,
				User:        t.User,
				Timestamp:   t.Timestamp,
				Slot:        t.Slot,
			})
		}

		if len(batch) < limit {
			break
		}
	}

	c.log.WithFields(logrus.Fields{"mint": mint, "trades": len(all)}).Debug("fetched pump.fun trades")
	return all, nil
}
