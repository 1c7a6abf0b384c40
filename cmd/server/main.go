// Package main runs the tokenomics API server:
// - GET /api/tokenomics: cached snapshot of supply, burn, holders, price and market cap
// - GET /api/tokenomics/history: recently recorded snapshots
// - GET /api/tokenomics/market-points: recorded price and market cap samples
// - GET /ws/tokenomics: periodic snapshot push
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"tokenomics-api/internal/cache"
	"tokenomics-api/internal/config"
	"tokenomics-api/internal/domain"
	"tokenomics-api/internal/httpapi"
	"tokenomics-api/internal/logging"
	"tokenomics-api/internal/pricing"
	"tokenomics-api/internal/solana"
	"tokenomics-api/internal/storage"
	chstore "tokenomics-api/internal/storage/clickhouse"
	"tokenomics-api/internal/storage/memory"
	"tokenomics-api/internal/storage/migrations"
	pgstore "tokenomics-api/internal/storage/postgres"
	"tokenomics-api/internal/tokenomics"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Parse flags (config values as defaults)
	addr := flag.String("addr", cfg.HTTPAddr, "HTTP listen address")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	rpcURL := flag.String("rpc-url", cfg.RPCURL, "Solana RPC HTTP endpoint")
	coingeckoURL := flag.String("coingecko-url", cfg.CoinGeckoURL, "CoinGecko API base URL")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string for snapshot history (empty: in-memory)")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickHouseDSN, "ClickHouse connection string for market points (empty: in-memory)")
	cacheTTL := flag.Duration("cache-ttl", cfg.CacheTTL, "Snapshot cache TTL")
	pushInterval := flag.Duration("push-interval", cfg.PushInterval, "WebSocket push interval")
	policy := flag.String("circulating-policy", cfg.CirculatingPolicy, "Circulating supply policy (unclamped, clamp-zero-supply)")
	flag.Parse()

	cfg.HTTPAddr = *addr
	cfg.LogLevel = *logLevel
	cfg.RPCURL = *rpcURL
	cfg.CoinGeckoURL = *coingeckoURL
	cfg.PostgresDSN = *postgresDSN
	cfg.ClickHouseDSN = *clickhouseDSN
	cfg.CacheTTL = *cacheTTL
	cfg.PushInterval = *pushInterval
	cfg.CirculatingPolicy = *policy

	logger := logging.New(cfg.LogLevel).With().Str("component", "server").Logger()

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if !cfg.HasPriceCredential() {
		logger.Warn().Msg("COINGECKO_API_KEY not set, price and market cap will be reported as 0")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, err := createStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create history stores")
	}
	defer stores.close()

	rpc := solana.NewHTTPClient(cfg.RPCURL, solana.WithTimeout(cfg.UpstreamTimeout))
	quoter := pricing.NewCoinGeckoClient(cfg.CoinGeckoURL, cfg.CoinGeckoAPIKey, pricing.WithTimeout(cfg.UpstreamTimeout))

	aggregator, err := tokenomics.NewAggregator(rpc, quoter, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create aggregator")
	}

	history := tokenomics.NewHistory(stores.snapshots, stores.points, cfg.Mint, logger)
	service := tokenomics.NewService(aggregator, cache.New[*domain.Snapshot](0), cfg.CacheTTL, logger,
		tokenomics.WithHistory(history))

	api := httpapi.New(httpapi.Config{
		Snapshots:    service,
		History:      history,
		PushInterval: cfg.PushInterval,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.HTTPAddr).
			Str("mint", cfg.Mint).
			Dur("cache_ttl", cfg.CacheTTL).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
	case err := <-errCh:
		logger.Error().Err(err).Msg("http server failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	go func() {
		// Second signal forces exit
		select {
		case sig := <-sigCh:
			logger.Warn().Str("signal", sig.String()).Msg("forcing immediate shutdown")
			os.Exit(1)
		case <-shutdownCtx.Done():
		}
	}()

	// Streams hold hijacked connections that Shutdown does not track.
	api.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	// Pending history writes finish before the stores close.
	history.Close()
	cancel()

	logger.Info().Msg("shutdown complete")
}

// historyStores holds the snapshot history backends.
type historyStores struct {
	snapshots storage.SnapshotStore
	points    storage.MarketPointStore
	cleanup   []func()
}

func (s *historyStores) close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
}

// createStores picks PostgreSQL and ClickHouse when their DSNs are set, memory otherwise.
// Migrations run before the stores are returned.
func createStores(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*historyStores, error) {
	stores := &historyStores{}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		stores.snapshots = pgstore.NewSnapshotStore(pool)
		stores.cleanup = append(stores.cleanup, pool.Close)
		logger.Info().Msg("snapshot history: postgres")
	} else {
		stores.snapshots = memory.NewSnapshotStore()
		logger.Info().Msg("snapshot history: memory")
	}

	if cfg.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			stores.close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		stores.points = chstore.NewMarketPointStore(conn)
		stores.cleanup = append(stores.cleanup, func() {
			if err := conn.Close(); err != nil {
				logger.Warn().Err(err).Msg("close clickhouse")
			}
		})
		logger.Info().Msg("market points: clickhouse")
	} else {
		stores.points = memory.NewMarketPointStore()
		logger.Info().Msg("market points: memory")
	}

	return stores, nil
}
