// Package config loads server configuration from an optional YAML file,
// a .env file and TOKENINTEL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. TOKENINTEL_SERVER_ADDR.
const EnvPrefix = "TOKENINTEL"

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Solana   SolanaConfig   `mapstructure:"solana"`
	Pumpfun  PumpfunConfig  `mapstructure:"pumpfun"`
	Social   SocialConfig   `mapstructure:"social"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Price    PriceConfig    `mapstructure:"price"`
	Holders  HoldersConfig  `mapstructure:"holders"`
	Research ResearchConfig `mapstructure:"research"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	Mode            string        `mapstructure:"mode" validate:"oneof=debug release test"`
}

// LogConfig configures logrus and lumberjack.
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format     string `mapstructure:"format" validate:"oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// SolanaConfig configures the RPC provider pool.
type SolanaConfig struct {
	RPCEndpoints   []string      `mapstructure:"rpc_endpoints" validate:"min=1,dive,url"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxRetries     int           `mapstructure:"max_retries" validate:"gte=0"`
	MaxSignatures  int           `mapstructure:"max_signatures" validate:"gt=0"`
	FallbackCycles int           `mapstructure:"fallback_cycles" validate:"gt=0"`
}

// PumpfunConfig configures the pump.fun REST client.
type PumpfunConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	TradePageLimit int           `mapstructure:"trade_page_limit" validate:"gt=0"`
	MinTradeSize   uint64        `mapstructure:"min_trade_size"`
	PageDelay      time.Duration `mapstructure:"page_delay" validate:"gte=0"`
	MaxTradePages  int           `mapstructure:"max_trade_pages" validate:"gte=0"`
	RateLimit      float64       `mapstructure:"rate_limit" validate:"gte=0"` // requests per second, 0 disables
}

// SocialConfig configures the post search client and aggregator.
type SocialConfig struct {
	BaseURL       string        `mapstructure:"base_url" validate:"required,url"`
	APIKey        string        `mapstructure:"api_key"`
	PageDelay     time.Duration `mapstructure:"page_delay"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
	MaxRetries    int           `mapstructure:"max_retries"`
	Limit         int           `mapstructure:"limit" validate:"gt=0"`
	IgnoreAuthors []string      `mapstructure:"ignore_authors"`
}

// LLMConfig configures the structured-generation client.
type LLMConfig struct {
	BaseURL     string  `mapstructure:"base_url" validate:"required,url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model" validate:"required"`
	Temperature float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

// PriceConfig configures the SOL/USD feeds.
type PriceConfig struct {
	CoingeckoURL string        `mapstructure:"coingecko_url" validate:"required,url"`
	JupiterURL   string        `mapstructure:"jupiter_url" validate:"required,url"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`
}

// HoldersConfig configures the holder aggregator and address classifier.
type HoldersConfig struct {
	IgnoreOwners        []string `mapstructure:"ignore_owners"`
	ClassifyConcurrency int      `mapstructure:"classify_concurrency" validate:"gt=0"`
}

// ResearchConfig configures the research workflow.
type ResearchConfig struct {
	EnableSimilar bool          `mapstructure:"enable_similar"`
	SimilarLimit  int           `mapstructure:"similar_limit" validate:"gt=0"`
	CreatorLimit  int           `mapstructure:"creator_limit" validate:"gt=0"`
	VolumeBuckets []int         `mapstructure:"volume_buckets" validate:"min=1,dive,gt=0"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// StorageConfig selects and configures persistence. Empty DSNs fall back to
// in-memory stores; an empty redis address disables caching.
type StorageConfig struct {
	PostgresDSN      string        `mapstructure:"postgres_dsn"`
	PostgresMaxConns int32         `mapstructure:"postgres_max_conns" validate:"gte=0"`
	ClickhouseDSN    string        `mapstructure:"clickhouse_dsn"`
	RedisAddr        string        `mapstructure:"redis_addr"`
	RedisPassword    string        `mapstructure:"redis_password"`
	RedisDB          int           `mapstructure:"redis_db" validate:"gte=0"`
	MetadataCacheTTL time.Duration `mapstructure:"metadata_cache_ttl" validate:"gt=0"`
	Migrate          bool          `mapstructure:"migrate"`
}

// setDefaults registers every key so that environment variables bind even
// without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics_addr", ":9090")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 0) // research streams are long-lived
	v.SetDefault("server.shutdown_timeout", 20*time.Second)
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)

	v.SetDefault("solana.rpc_endpoints", []string{"https://api.mainnet-beta.solana.com"})
	v.SetDefault("solana.timeout", 30*time.Second)
	v.SetDefault("solana.max_retries", 3)
	v.SetDefault("solana.max_signatures", 1000)
	v.SetDefault("solana.fallback_cycles", 3)

	v.SetDefault("pumpfun.base_url", "https://frontend-api-v3.pump.fun")
	v.SetDefault("pumpfun.trade_page_limit", 200)
	v.SetDefault("pumpfun.min_trade_size", 0)
	v.SetDefault("pumpfun.page_delay", 300*time.Millisecond)
	v.SetDefault("pumpfun.max_trade_pages", 0)
	v.SetDefault("pumpfun.rate_limit", 5.0)

	v.SetDefault("social.base_url", "https://api.twitterapi.io")
	v.SetDefault("social.api_key", "")
	v.SetDefault("social.page_delay", 200*time.Millisecond)
	v.SetDefault("social.retry_delay", 200*time.Millisecond)
	v.SetDefault("social.max_retries", 3)
	v.SetDefault("social.limit", 100)
	v.SetDefault("social.ignore_authors", []string{})

	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.temperature", 0.1)

	v.SetDefault("price.coingecko_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("price.jupiter_url", "https://price.jup.ag/v4")
	v.SetDefault("price.cache_ttl", 60*time.Second)

	v.SetDefault("holders.ignore_owners", []string{})
	v.SetDefault("holders.classify_concurrency", 8)

	v.SetDefault("research.enable_similar", false)
	v.SetDefault("research.similar_limit", 15)
	v.SetDefault("research.creator_limit", 500)
	v.SetDefault("research.volume_buckets", []int{15, 30, 60})
	v.SetDefault("research.timeout", 5*time.Minute)

	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.postgres_max_conns", 0)
	v.SetDefault("storage.clickhouse_dsn", "")
	v.SetDefault("storage.redis_addr", "")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.metadata_cache_ttl", 10*time.Minute)
	v.SetDefault("storage.migrate", true)
}

// Load reads configuration. path may be empty; a missing .env file is not an
// error. Environment variables override the file, which overrides defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Solana.RPCEndpoints = splitList(cfg.Solana.RPCEndpoints)
	cfg.Social.IgnoreAuthors = splitList(cfg.Social.IgnoreAuthors)
	cfg.Holders.IgnoreOwners = splitList(cfg.Holders.IgnoreOwners)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// splitList expands comma-separated entries, as produced by list values
// given through a single environment variable.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
