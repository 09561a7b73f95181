// Package market prices SOL and bonding-curve tokens in USD.
package market

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"token-intel/internal/domain"
	"token-intel/internal/fallback"
	"token-intel/internal/httpclient"
	"token-intel/internal/logger"
	"token-intel/internal/observability"
	"token-intel/internal/solana"
	"token-intel/internal/storage"
)

// Price feed defaults.
const (
	DefaultCoingeckoURL = "https://api.coingecko.com/api/v3"
	DefaultJupiterURL   = "https://price.jup.ag/v4"
	DefaultSolCacheTTL  = 60 * time.Second
	solCacheKey         = "price:sol-usd"
)

// SolConfig configures SolPricer.
type SolConfig struct {
	CoingeckoURL string
	JupiterURL   string
	MaxCycles    int
	CacheTTL     time.Duration
}

// SolPricer returns the SOL/USD price from the first feed that answers.
type SolPricer struct {
	cfg   SolConfig
	http  *httpclient.Client
	cache storage.Cache // optional
	log   *logrus.Entry
}

// NewSolPricer creates a SolPricer. cache may be nil.
func NewSolPricer(cfg SolConfig, hc *httpclient.Client, cache storage.Cache, log *logrus.Entry) *SolPricer {
	if cfg.CoingeckoURL == "" {
		cfg.CoingeckoURL = DefaultCoingeckoURL
	}
	if cfg.JupiterURL == "" {
		cfg.JupiterURL = DefaultJupiterURL
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultSolCacheTTL
	}
	if hc == nil {
		hc = httpclient.New("price-feed")
	}
	return &SolPricer{cfg: cfg, http: hc, cache: cache, log: logger.OrDiscard(log, "market")}
}

type cachedPrice struct {
	USD    float64 `json:"usd"`
	Source string  `json:"source"`
}

// SolUSD returns the current SOL price in USD.
func (p *SolPricer) SolUSD(ctx context.Context) (float64, error) {
	if p.cache != nil {
		var cached cachedPrice
		hit, err := p.cache.GetJSON(ctx, solCacheKey, &cached)
		if err != nil {
			p.log.WithError(err).Warn("price cache read failed")
		}
		observability.RecordCacheLookup("sol-price", hit)
		if hit && cached.USD > 0 {
			return cached.USD, nil
		}
	}

	plan := []fallback.Strategy[float64]{
		{Name: "coingecko", Fetch: p.coingecko},
		{Name: "jupiter", Fetch: p.jupiter},
	}
	out, err := fallback.Execute(ctx, fallback.New("sol-price", p.cfg.MaxCycles, p.log), plan)
	if err != nil {
		return 0, err
	}

	if p.cache != nil {
		if err := p.cache.SetJSON(ctx, solCacheKey, cachedPrice{USD: out.Value, Source: out.StrategyUsed}, p.cfg.CacheTTL); err != nil {
			p.log.WithError(err).Warn("price cache write failed")
		}
	}
	return out.Value, nil
}

func (p *SolPricer) coingecko(ctx context.Context) (float64, error) {
	var body struct {
		Solana struct {
			USD float64 `json:"usd"`
		} `json:"solana"`
	}
	endpoint := p.cfg.CoingeckoURL + "/simple/price?ids=solana&vs_currencies=usd"
	if err := p.http.GetJSON(ctx, endpoint, &body); err != nil {
		return 0, err
	}
	return positive("coingecko", body.Solana.USD)
}

func (p *SolPricer) jupiter(ctx context.Context) (float64, error) {
	var body struct {
		Data map[string]struct {
			Price float64 `json:"price"`
		} `json:"data"`
	}
	endpoint := p.cfg.JupiterURL + "/price?ids=" + url.QueryEscape(solana.WrappedSOLMint)
	if err := p.http.GetJSON(ctx, endpoint, &body); err != nil {
		return 0, err
	}
	return positive("jupiter", body.Data[solana.WrappedSOLMint].Price)
}

func positive(feed string, v float64) (float64, error) {
	if v <= 0 {
		return 0, fmt.Errorf("%w: %s returned no SOL price", domain.ErrUpstream, feed)
	}
	return v, nil
}
