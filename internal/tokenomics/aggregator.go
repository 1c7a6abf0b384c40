// Package tokenomics computes and caches the supply and market view of one SPL token.
package tokenomics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tokenomics-api/internal/config"
	"tokenomics-api/internal/domain"
	"tokenomics-api/internal/observability"
	"tokenomics-api/internal/pricing"
	"tokenomics-api/internal/solana"
	"tokenomics-api/internal/upstream"
)

// Snapshot field names used in logs and degradation metrics.
const (
	FieldTotalSupply = "totalSupply"
	FieldBurned      = "burnedAmount"
	FieldPrice       = "price"
	FieldTopHolders  = "topHolders"
)

const ledgerSource = "solana"

// Aggregator queries the ledger and the price API and assembles a Snapshot.
// Every step degrades to its zero value on failure; Compute never returns an error.
type Aggregator struct {
	rpc    solana.RPCClient
	quoter pricing.Quoter
	logger zerolog.Logger

	mint       string
	burnWallet string
	tokenID    string
	currency   string
	hasKey     bool
	timeout    time.Duration
	policy     CirculatingPolicy
}

// NewAggregator creates an Aggregator for the asset described by cfg.
func NewAggregator(rpc solana.RPCClient, quoter pricing.Quoter, cfg config.Config, logger zerolog.Logger) (*Aggregator, error) {
	policy, err := ParseCirculatingPolicy(cfg.CirculatingPolicy)
	if err != nil {
		return nil, err
	}
	timeout := cfg.UpstreamTimeout
	if timeout <= 0 {
		timeout = config.DefaultUpstreamTimeout
	}

	return &Aggregator{
		rpc:        rpc,
		quoter:     quoter,
		logger:     logger.With().Str("component", "aggregator").Str("mint", cfg.Mint).Logger(),
		mint:       cfg.Mint,
		burnWallet: cfg.BurnWallet,
		tokenID:    cfg.CoinGeckoTokenID,
		currency:   cfg.ReferenceCurrency,
		hasKey:     cfg.HasPriceCredential(),
		timeout:    timeout,
		policy:     policy,
	}, nil
}

// Compute runs every step in sequence and assembles the snapshot.
func (a *Aggregator) Compute(ctx context.Context) *domain.Snapshot {
	start := time.Now()

	total := a.totalSupply(ctx)
	burned := a.burnedAmount(ctx)
	price := a.price(ctx)
	holders := a.topHolders(ctx)

	var degraded []string
	degraded = noteFailure(a.logger, FieldTotalSupply, total, degraded)
	degraded = noteFailure(a.logger, FieldBurned, burned, degraded)
	degraded = noteFailure(a.logger, FieldPrice, price, degraded)
	degraded = noteFailure(a.logger, FieldTopHolders, holders, degraded)

	totalValue := total.Or(decimal.Zero)
	burnedValue := burned.Or(decimal.Zero)
	priceValue := price.Or(decimal.Zero)
	circulating := a.policy.Circulating(totalValue, burnedValue)

	snap := &domain.Snapshot{
		TotalSupply:       totalValue,
		BurnedAmount:      burnedValue,
		CirculatingSupply: circulating,
		TopHolders:        holders.Or([]domain.Holder{}),
		Price:             priceValue,
		MarketCap:         MarketCap(circulating, priceValue),
	}

	elapsed := time.Since(start)
	observability.RecordSnapshot(elapsed, degraded)
	a.logger.Info().
		Dur("duration", elapsed).
		Strs("degraded", degraded).
		Str("total_supply", snap.TotalSupply.String()).
		Str("circulating_supply", snap.CirculatingSupply.String()).
		Str("price", snap.Price.String()).
		Msg("snapshot computed")

	return snap
}

// noteFailure logs a failed step and appends its field to degraded.
func noteFailure[T any](logger zerolog.Logger, field string, r upstream.Result[T], degraded []string) []string {
	if !r.Failed() {
		return degraded
	}

	event := logger.Warn()
	if r.Kind() == upstream.KindMissingCredential {
		event = logger.Debug()
	}
	event.Err(r.Err).
		Str("field", field).
		Str("kind", string(r.Kind())).
		Msg("upstream step failed, using default")

	return append(degraded, field)
}

func (a *Aggregator) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.timeout)
}

func (a *Aggregator) ledgerFailure(err error) {
	observability.RecordUpstreamError(ledgerSource, string(upstream.KindOf(err)))
}

func (a *Aggregator) totalSupply(ctx context.Context) upstream.Result[decimal.Decimal] {
	ctx, cancel := a.stepContext(ctx)
	defer cancel()

	supply, err := a.rpc.GetTokenSupply(ctx, a.mint)
	if err != nil {
		a.ledgerFailure(err)
		return upstream.Fail[decimal.Decimal](fmt.Errorf("get token supply: %w", err))
	}

	total, err := supply.Decimal()
	if err != nil {
		return upstream.Fail[decimal.Decimal](upstream.Parse(ledgerSource, err))
	}
	return upstream.OK(total)
}

// burnedAmount reads the balance of the burn wallet's associated token account.
// An account that was never created holds nothing and counts as zero.
func (a *Aggregator) burnedAmount(ctx context.Context) upstream.Result[decimal.Decimal] {
	ata, err := solana.FindAssociatedTokenAddress(a.burnWallet, a.mint)
	if err != nil {
		return upstream.Fail[decimal.Decimal](fmt.Errorf("derive burn token account: %w", err))
	}

	ctx, cancel := a.stepContext(ctx)
	defer cancel()

	balance, err := a.rpc.GetTokenAccountBalance(ctx, ata)
	if errors.Is(err, solana.ErrAccountNotFound) {
		a.logger.Debug().Str("account", ata).Msg("burn token account does not exist")
		return upstream.OK(decimal.Zero)
	}
	if err != nil {
		a.ledgerFailure(err)
		return upstream.Fail[decimal.Decimal](fmt.Errorf("get burn account balance: %w", err))
	}

	burned, err := balance.Decimal()
	if err != nil {
		return upstream.Fail[decimal.Decimal](upstream.Parse(ledgerSource, err))
	}
	return upstream.OK(burned)
}

func (a *Aggregator) price(ctx context.Context) upstream.Result[decimal.Decimal] {
	if !a.hasKey || a.quoter == nil {
		return upstream.Fail[decimal.Decimal](upstream.MissingCredential("coingecko"))
	}

	ctx, cancel := a.stepContext(ctx)
	defer cancel()

	price, err := a.quoter.SpotPrice(ctx, a.tokenID, a.currency)
	if err != nil {
		return upstream.Fail[decimal.Decimal](fmt.Errorf("get spot price: %w", err))
	}
	return upstream.OK(price)
}

func (a *Aggregator) topHolders(ctx context.Context) upstream.Result[[]domain.Holder] {
	ctx, cancel := a.stepContext(ctx)
	defer cancel()

	accounts, err := a.rpc.GetTokenLargestAccounts(ctx, a.mint)
	if err != nil {
		a.ledgerFailure(err)
		return upstream.Fail[[]domain.Holder](fmt.Errorf("get largest accounts: %w", err))
	}

	n := len(accounts)
	if n > domain.TopHoldersLimit {
		n = domain.TopHoldersLimit
	}
	holders := make([]domain.Holder, 0, n)
	for _, acc := range accounts[:n] {
		holders = append(holders, domain.Holder{
			Address: acc.Address,
			Amount:  acc.DisplayAmount(),
		})
	}
	return upstream.OK(holders)
}
