package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"token-intel/internal/api"
	"token-intel/internal/config"
	"token-intel/internal/curve"
	"token-intel/internal/holders"
	"token-intel/internal/httpclient"
	"token-intel/internal/llm"
	"token-intel/internal/logger"
	"token-intel/internal/market"
	"token-intel/internal/metadata"
	"token-intel/internal/provider"
	"token-intel/internal/pumpfun"
	"token-intel/internal/research"
	"token-intel/internal/social"
	"token-intel/internal/solana"
	"token-intel/internal/storage"
	chstore "token-intel/internal/storage/clickhouse"
	"token-intel/internal/storage/memory"
	"token-intel/internal/storage/migrations"
	pgstore "token-intel/internal/storage/postgres"
	redisstore "token-intel/internal/storage/redis"
	"token-intel/internal/trades"
)

const cachePrefix = "tokenintel:"

// allStores holds the persistence backends.
type allStores struct {
	chats     storage.ChatStore
	snapshots storage.VolumeSnapshotStore
	cache     storage.Cache // nil when redis is not configured
}

// createStores connects the configured backends. Empty DSNs fall back to
// in-memory stores.
func createStores(ctx context.Context, cfg *config.Config, root *logrus.Logger) (*allStores, func(), error) {
	log := logger.Component(root, "storage")
	stores := &allStores{}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		closers = nil
	}

	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		pool, err := pgstore.NewPool(ctx, dsn, cfg.Storage.PostgresMaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if cfg.Storage.Migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("postgres migrations: %w", err)
			}
		}
		stores.chats = pgstore.NewChatStore(pool)
	} else {
		log.Info("postgres not configured, chats are kept in memory")
		stores.chats = memory.NewChatStore()
	}

	if dsn := cfg.Storage.ClickhouseDSN; dsn != "" {
		var conn *chstore.Conn
		var err error
		if cfg.Storage.Migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, dsn)
		} else {
			conn, err = chstore.NewConn(ctx, dsn)
		}
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		closers = append(closers, func() { _ = conn.Close() })
		stores.snapshots = chstore.NewVolumeSnapshotStore(conn)
	} else {
		log.Info("clickhouse not configured, volume snapshots are kept in memory")
		stores.snapshots = memory.NewVolumeSnapshotStore()
	}

	if addr := cfg.Storage.RedisAddr; addr != "" {
		client, err := redisstore.Connect(ctx, redisstore.Options{
			Addr:     addr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		stores.cache = redisstore.NewCache(client, cachePrefix)
	}

	return stores, cleanup, nil
}

// buildServices connects to Solana and assembles every API collaborator.
func buildServices(ctx context.Context, cfg *config.Config, stores *allStores, root *logrus.Logger) (api.Services, error) {
	component := func(name string) *logrus.Entry { return logger.Component(root, name) }
	cycles := cfg.Solana.FallbackCycles

	connector := provider.NewConnector(cfg.Solana.RPCEndpoints, provider.HTTPDialer(
		solana.WithTimeout(cfg.Solana.Timeout),
		solana.WithMaxRetries(cfg.Solana.MaxRetries),
	), component("provider"))
	rpc, err := connector.Connect(ctx)
	if err != nil {
		return api.Services{}, err
	}

	pumpHTTP := httpclient.New("pumpfun", httpclient.WithRateLimit(cfg.Pumpfun.RateLimit, 1))
	pf := pumpfun.NewClient(pumpfun.Config{
		BaseURL:        cfg.Pumpfun.BaseURL,
		TradePageLimit: cfg.Pumpfun.TradePageLimit,
		MinTradeSize:   cfg.Pumpfun.MinTradeSize,
		PageDelay:      cfg.Pumpfun.PageDelay,
		MaxTradePages:  cfg.Pumpfun.MaxTradePages,
	}, pumpHTTP, component("pumpfun"))

	var resolver metadata.Resolver = metadata.NewSelector(
		metadata.NewMetaplexReader(rpc, httpclient.New("metadata-uri", httpclient.WithTimeout(10*time.Second)), component("metaplex")),
		pf, cycles, component("metadata"))
	if stores.cache != nil {
		resolver = metadata.NewCachedResolver(resolver, stores.cache, cfg.Storage.MetadataCacheTTL, component("metadata-cache"))
	}

	curves := curve.NewReader(rpc)
	sol := market.NewSolPricer(market.SolConfig{
		CoingeckoURL: cfg.Price.CoingeckoURL,
		JupiterURL:   cfg.Price.JupiterURL,
		MaxCycles:    cycles,
		CacheTTL:     cfg.Price.CacheTTL,
	}, httpclient.New("sol-price"), stores.cache, component("sol-price"))
	pricer := market.NewTokenPricer(curves, sol, component("token-price"))

	tradeSource := trades.NewSource(pf, rpc, cycles, cfg.Solana.MaxSignatures, component("trades"))
	holderAgg := holders.NewAggregator(rpc, holders.Config{IgnoreOwners: cfg.Holders.IgnoreOwners}, component("holders"))
	classifier := holders.NewClassifier(rpc, cfg.Holders.ClassifyConcurrency, component("classifier"))

	search := social.NewClient(social.Config{
		BaseURL:    cfg.Social.BaseURL,
		APIKey:     cfg.Social.APIKey,
		PageDelay:  cfg.Social.PageDelay,
		RetryDelay: cfg.Social.RetryDelay,
		MaxRetries: cfg.Social.MaxRetries,
	}, component("social-client"))
	gemini := llm.NewGeminiClient(llm.GeminiConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
	}, httpclient.New("gemini"), component("llm"))
	socialAgg := social.NewAggregator(search, social.NewScorer(gemini, component("sentiment")), social.AggregatorConfig{
		Limit:         cfg.Social.Limit,
		IgnoreAuthors: cfg.Social.IgnoreAuthors,
	}, component("social"))

	var similar research.SimilarFinder
	if cfg.Research.EnableSimilar {
		similar = pf
	}

	workflow := research.NewWorkflow(research.Options{
		Metadata:      resolver,
		Pricer:        pricer,
		Trades:        tradeSource,
		Holders:       holderAgg,
		Similar:       similar,
		Creators:      pf,
		Social:        socialAgg,
		VolumeBuckets: cfg.Research.VolumeBuckets,
		SimilarLimit:  cfg.Research.SimilarLimit,
		CreatorLimit:  cfg.Research.CreatorLimit,
		Log:           component("research"),
	})

	return api.Services{
		Metadata:   resolver,
		Pricer:     pricer,
		Curves:     curves,
		Holders:    holderAgg,
		Classifier: classifier,
		Trades:     tradeSource,
		Creators:   pf,
		Similar:    similar,
		Social:     socialAgg,
		Research:   workflow,
		Chats:      stores.chats,
		Snapshots:  stores.snapshots,
	}, nil
}
