// Package config loads process configuration from the environment once at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Fixed asset identifiers.
const (
	CopperInuMint       = "61Wj56QgGyyB966T7YsMzEAKRLcMvJpDbPzjkrCZc4Bi"
	BurnWalletAddress   = "1nc1nerator11111111111111111111111111111111"
	CoinGeckoTokenID    = "copper-inu-2"
	ReferenceCurrency   = "usd"
	DefaultRPCURL       = "https://api.mainnet-beta.solana.com"
	DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"
	DefaultGitHubURL    = "https://api.github.com"
)

// Defaults for tunables.
const (
	DefaultHTTPAddr          = ":5000"
	DefaultCacheTTL          = 300 * time.Second
	DefaultUpstreamTimeout   = 10 * time.Second
	DefaultLogLevel          = "info"
	DefaultCirculatingPolicy = PolicyUnclamped
)

// Circulating supply policy names accepted in CIRCULATING_POLICY.
const (
	PolicyUnclamped       = "unclamped"
	PolicyClampZeroSupply = "clamp-zero-supply"
)

// Config is the process configuration. It is populated once and passed by value.
type Config struct {
	HTTPAddr string
	LogLevel string

	// Ledger
	RPCURL     string
	Mint       string
	BurnWallet string

	// Price quotes
	CoinGeckoURL      string
	CoinGeckoAPIKey   string // empty disables price lookups
	CoinGeckoTokenID  string
	ReferenceCurrency string

	// Source hosting
	GitHubURL string

	// Aggregation
	CacheTTL          time.Duration
	UpstreamTimeout   time.Duration
	PushInterval      time.Duration
	CirculatingPolicy string

	// History (optional)
	PostgresDSN   string
	ClickHouseDSN string
}

// Load reads a .env file if present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup. Unset variables take their defaults.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}
	getDuration := func(key string, def time.Duration) (time.Duration, error) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return def, nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("parse %s: %w", key, err)
		}
		return d, nil
	}

	cfg := Config{
		HTTPAddr:          get("HTTP_ADDR", DefaultHTTPAddr),
		LogLevel:          get("LOG_LEVEL", DefaultLogLevel),
		RPCURL:            get("SOLANA_MAINNET_RPC_URL", DefaultRPCURL),
		Mint:              CopperInuMint,
		BurnWallet:        BurnWalletAddress,
		CoinGeckoURL:      get("COINGECKO_API_URL", DefaultCoinGeckoURL),
		CoinGeckoAPIKey:   get("COINGECKO_API_KEY", ""),
		CoinGeckoTokenID:  CoinGeckoTokenID,
		ReferenceCurrency: ReferenceCurrency,
		GitHubURL:         get("GITHUB_API_URL", DefaultGitHubURL),
		CirculatingPolicy: get("CIRCULATING_POLICY", DefaultCirculatingPolicy),
		PostgresDSN:       get("POSTGRES_DSN", ""),
		ClickHouseDSN:     get("CLICKHOUSE_DSN", ""),
	}

	var err error
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", DefaultCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.UpstreamTimeout, err = getDuration("UPSTREAM_TIMEOUT", DefaultUpstreamTimeout); err != nil {
		return Config{}, err
	}
	if cfg.PushInterval, err = getDuration("PUSH_INTERVAL", cfg.CacheTTL); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return errors.New("rpc url is required")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", c.CacheTTL)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive, got %s", c.UpstreamTimeout)
	}
	if c.PushInterval <= 0 {
		return fmt.Errorf("push interval must be positive, got %s", c.PushInterval)
	}
	switch c.CirculatingPolicy {
	case PolicyUnclamped, PolicyClampZeroSupply:
	default:
		return fmt.Errorf("unknown circulating policy %q", c.CirculatingPolicy)
	}
	return nil
}

// HasPriceCredential reports whether price lookups are enabled.
func (c Config) HasPriceCredential() bool {
	return c.CoinGeckoAPIKey != ""
}
