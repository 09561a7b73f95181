package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"token-intel/internal/domain"
	"token-intel/internal/fallback"
	"token-intel/internal/logger"
	"token-intel/internal/observability"
	"token-intel/internal/pumpfun"
	"token-intel/internal/storage"
)

// Strategy names.
const (
	StrategyMetaplex = "metaplex"
	StrategyPumpfun  = "pumpfun"
)

// MetaplexFetcher reads on-chain metadata.
type MetaplexFetcher interface {
	Fetch(ctx context.Context, mint string) (*MetaplexRecord, error)
}

// CoinFetcher reads pump.fun coin details.
type CoinFetcher interface {
	Coin(ctx context.Context, mint string) (*pumpfun.Coin, error)
}

// Selector resolves metadata with on-chain first, pump.fun second.
type Selector struct {
	metaplex  MetaplexFetcher
	pumpfun   CoinFetcher
	maxCycles int
	log       *logrus.Entry
}

// NewSelector creates a Selector. maxCycles <= 0 uses fallback.DefaultMaxCycles.
func NewSelector(metaplex MetaplexFetcher, pf CoinFetcher, maxCycles int, log *logrus.Entry) *Selector {
	return &Selector{metaplex: metaplex, pumpfun: pf, maxCycles: maxCycles, log: logger.OrDiscard(log, "metadata")}
}

// Resolve returns normalized metadata for mint. When the winning source has no
// creator it is backfilled from pump.fun; that lookup's error is returned as is.
func (s *Selector) Resolve(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	plan := []fallback.Strategy[Payload]{
		{Name: StrategyMetaplex, Fetch: func(ctx context.Context) (Payload, error) {
			rec, err := s.metaplex.Fetch(ctx, mint)
			if err != nil {
				return Payload{}, err
			}
			return Payload{Source: SourceMetaplex, Metaplex: rec}, nil
		}},
		{Name: StrategyPumpfun, Fetch: func(ctx context.Context) (Payload, error) {
			coin, err := s.pumpfun.Coin(ctx, mint)
			if err != nil {
				return Payload{}, err
			}
			return Payload{Source: SourcePumpfun, Pumpfun: coin}, nil
		}},
	}

	out, err := fallback.Execute(ctx, fallback.New("metadata", s.maxCycles, s.log), plan)
	if err != nil {
		return nil, err
	}
	md, err := Normalize(out.Value)
	if err != nil {
		return nil, err
	}

	if md.Creator == nil {
		coin, err := s.pumpfun.Coin(ctx, mint)
		if err != nil {
			return nil, fmt.Errorf("backfill creator: %w", err)
		}
		if coin.Creator != "" {
			creator := coin.Creator
			md.Creator = &creator
		}
	}

	s.log.WithFields(logrus.Fields{
		"mint":     mint,
		"strategy": out.StrategyUsed,
		"attempts": out.Attempts,
	}).Debug("metadata resolved")
	return &md, nil
}

// DefaultCacheTTL is how long resolved metadata stays cached.
const DefaultCacheTTL = 10 * time.Minute

// Resolver is satisfied by Selector and CachedResolver.
type Resolver interface {
	Resolve(ctx context.Context, mint string) (*domain.TokenMetadata, error)
}

// CachedResolver memoizes a Resolver in a storage.Cache. Cache failures
// degrade to a direct lookup.
type CachedResolver struct {
	next  Resolver
	cache storage.Cache
	ttl   time.Duration
	log   *logrus.Entry
}

// NewCachedResolver wraps next. ttl <= 0 uses DefaultCacheTTL.
func NewCachedResolver(next Resolver, cache storage.Cache, ttl time.Duration, log *logrus.Entry) *CachedResolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedResolver{next: next, cache: cache, ttl: ttl, log: logger.OrDiscard(log, "metadata")}
}

// Resolve implements Resolver.
func (c *CachedResolver) Resolve(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	key := "metadata:" + mint

	var cached domain.TokenMetadata
	hit, err := c.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		c.log.WithError(err).Warn("metadata cache read failed")
	}
	observability.RecordCacheLookup("metadata", hit)
	if hit {
		return &cached, nil
	}

	md, err := c.next.Resolve(ctx, mint)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetJSON(ctx, key, md, c.ttl); err != nil {
		c.log.WithError(err).Warn("metadata cache write failed")
	}
	return md, nil
}
