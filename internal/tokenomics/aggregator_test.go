package tokenomics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenomics-api/internal/config"
	"tokenomics-api/internal/domain"
	"tokenomics-api/internal/solana"
	"tokenomics-api/internal/solana/stub"
	"tokenomics-api/internal/upstream"
)

// fakeQuoter implements pricing.Quoter for tests.
type fakeQuoter struct {
	mu    sync.Mutex
	price decimal.Decimal
	err   error
	calls int
}

func (q *fakeQuoter) SpotPrice(_ context.Context, tokenID, currency string) (decimal.Decimal, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	if q.err != nil {
		return decimal.Zero, q.err
	}
	if tokenID != config.CoinGeckoTokenID || currency != config.ReferenceCurrency {
		return decimal.Zero, fmt.Errorf("unexpected quote %s/%s", tokenID, currency)
	}
	return q.price, nil
}

func (q *fakeQuoter) setPrice(p string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.price = decimal.RequireFromString(p)
}

func (q *fakeQuoter) callCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.calls
}

func testConfig(apiKey string) config.Config {
	return config.Config{
		RPCURL:            config.DefaultRPCURL,
		Mint:              config.CopperInuMint,
		BurnWallet:        config.BurnWalletAddress,
		CoinGeckoAPIKey:   apiKey,
		CoinGeckoTokenID:  config.CoinGeckoTokenID,
		ReferenceCurrency: config.ReferenceCurrency,
		CacheTTL:          config.DefaultCacheTTL,
		UpstreamTimeout:   config.DefaultUpstreamTimeout,
		PushInterval:      config.DefaultCacheTTL,
		CirculatingPolicy: string(Unclamped),
	}
}

func burnAccount(t *testing.T) string {
	t.Helper()
	ata, err := solana.FindAssociatedTokenAddress(config.BurnWalletAddress, config.CopperInuMint)
	require.NoError(t, err)
	return ata
}

func largest(n int) []solana.TokenAccountBalance {
	accounts := make([]solana.TokenAccountBalance, n)
	for i := range accounts {
		amount := fmt.Sprintf("%d", (n-i)*1000)
		accounts[i] = solana.TokenAccountBalance{
			Address:     fmt.Sprintf("holder%d", i+1),
			TokenAmount: solana.TokenAmount{UIAmountString: amount},
		}
	}
	return accounts
}

// healthyUpstream returns a ledger and price source where every step succeeds.
func healthyUpstream(t *testing.T) (*stub.RPCClient, *fakeQuoter) {
	t.Helper()
	rpc := stub.NewRPCClient()
	rpc.SetSupply(config.CopperInuMint, "1000000")
	rpc.SetBalance(burnAccount(t), "250000")
	rpc.SetLargest(config.CopperInuMint, largest(3))
	return rpc, &fakeQuoter{price: decimal.RequireFromString("0.002")}
}

func newTestAggregator(t *testing.T, rpc solana.RPCClient, quoter *fakeQuoter, cfg config.Config) *Aggregator {
	t.Helper()
	agg, err := NewAggregator(rpc, quoter, cfg, zerolog.Nop())
	require.NoError(t, err)
	return agg
}

func TestAggregator_Compute(t *testing.T) {
	rpc, quoter := healthyUpstream(t)
	agg := newTestAggregator(t, rpc, quoter, testConfig("key"))

	snap := agg.Compute(context.Background())

	assert.Equal(t, "1000000", snap.TotalSupply.String())
	assert.Equal(t, "250000", snap.BurnedAmount.String())
	assert.Equal(t, "750000", snap.CirculatingSupply.String())
	assert.Equal(t, "0.002", snap.Price.String())
	assert.Equal(t, "1500", snap.MarketCap.String())
	require.Len(t, snap.TopHolders, 3)
	assert.Equal(t, domain.Holder{Address: "holder1", Amount: "3000"}, snap.TopHolders[0])
}

func TestAggregator_BurnAccountMissing(t *testing.T) {
	rpc, quoter := healthyUpstream(t)
	rpc.Balances = map[string]*solana.TokenAmount{}
	agg := newTestAggregator(t, rpc, quoter, testConfig("key"))

	snap := agg.Compute(context.Background())

	assert.True(t, snap.BurnedAmount.IsZero())
	assert.Equal(t, "1000000", snap.CirculatingSupply.String())
}

func TestAggregator_FailureCombinations(t *testing.T) {
	ledgerErr := upstream.Network("solana", errors.New("connection refused"))
	priceErr := upstream.HTTPStatus("coingecko", 500, "boom")

	// Each bit fails one step: supply, burn balance, price, largest accounts.
	for mask := 0; mask < 16; mask++ {
		t.Run(fmt.Sprintf("mask=%04b", mask), func(t *testing.T) {
			rpc, quoter := healthyUpstream(t)
			if mask&1 != 0 {
				rpc.SupplyErr = ledgerErr
			}
			if mask&2 != 0 {
				rpc.BalanceErr = ledgerErr
			}
			if mask&4 != 0 {
				quoter.err = priceErr
			}
			if mask&8 != 0 {
				rpc.LargestErr = ledgerErr
			}
			agg := newTestAggregator(t, rpc, quoter, testConfig("key"))

			snap := agg.Compute(context.Background())
			require.NotNil(t, snap)

			wantTotal := decimal.NewFromInt(1000000)
			if mask&1 != 0 {
				wantTotal = decimal.Zero
			}
			wantBurned := decimal.NewFromInt(250000)
			if mask&2 != 0 {
				wantBurned = decimal.Zero
			}
			wantPrice := decimal.RequireFromString("0.002")
			if mask&4 != 0 {
				wantPrice = decimal.Zero
			}

			assert.True(t, wantTotal.Equal(snap.TotalSupply), "total %s", snap.TotalSupply)
			assert.True(t, wantBurned.Equal(snap.BurnedAmount), "burned %s", snap.BurnedAmount)
			assert.True(t, wantPrice.Equal(snap.Price), "price %s", snap.Price)
			assert.True(t, snap.CirculatingSupply.Equal(wantTotal.Sub(wantBurned)))
			assert.True(t, snap.MarketCap.Equal(MarketCap(snap.CirculatingSupply, snap.Price)))

			assert.NotNil(t, snap.TopHolders)
			if mask&8 != 0 {
				assert.Empty(t, snap.TopHolders)
			} else {
				assert.Len(t, snap.TopHolders, 3)
			}

			_, err := snap.MarshalJSON()
			assert.NoError(t, err)
		})
	}
}

func TestAggregator_MissingCredential(t *testing.T) {
	rpc, quoter := healthyUpstream(t)
	agg := newTestAggregator(t, rpc, quoter, testConfig(""))

	snap := agg.Compute(context.Background())

	assert.True(t, snap.Price.IsZero())
	assert.True(t, snap.MarketCap.IsZero())
	assert.Equal(t, "750000", snap.CirculatingSupply.String())
	assert.Zero(t, quoter.callCount(), "price API must not be queried without a key")
}

func TestAggregator_TopHoldersLimit(t *testing.T) {
	rpc, quoter := healthyUpstream(t)
	rpc.SetLargest(config.CopperInuMint, largest(20))
	agg := newTestAggregator(t, rpc, quoter, testConfig("key"))

	snap := agg.Compute(context.Background())

	require.Len(t, snap.TopHolders, domain.TopHoldersLimit)
	for i, h := range snap.TopHolders {
		assert.Equal(t, fmt.Sprintf("holder%d", i+1), h.Address)
	}
}

func TestAggregator_BurnedExceedsTotal(t *testing.T) {
	rpc, quoter := healthyUpstream(t)
	rpc.SetSupply(config.CopperInuMint, "100")
	rpc.SetBalance(burnAccount(t), "105")
	agg := newTestAggregator(t, rpc, quoter, testConfig("key"))

	snap := agg.Compute(context.Background())

	assert.Equal(t, "-5", snap.CirculatingSupply.String())
	assert.True(t, snap.MarketCap.IsZero())
}

func TestAggregator_ClampZeroSupply(t *testing.T) {
	rpc, quoter := healthyUpstream(t)
	rpc.SupplyErr = errors.New("down")
	cfg := testConfig("key")
	cfg.CirculatingPolicy = string(ClampZeroSupply)
	agg := newTestAggregator(t, rpc, quoter, cfg)

	snap := agg.Compute(context.Background())

	assert.True(t, snap.TotalSupply.IsZero())
	assert.Equal(t, "250000", snap.BurnedAmount.String())
	assert.True(t, snap.CirculatingSupply.IsZero())
}

func TestAggregator_UnparseableSupply(t *testing.T) {
	rpc, quoter := healthyUpstream(t)
	rpc.SetSupply(config.CopperInuMint, "not-a-number")
	agg := newTestAggregator(t, rpc, quoter, testConfig("key"))

	snap := agg.Compute(context.Background())

	assert.True(t, snap.TotalSupply.IsZero())
	assert.Equal(t, "-250000", snap.CirculatingSupply.String())
}

func TestNewAggregator_UnknownPolicy(t *testing.T) {
	cfg := testConfig("key")
	cfg.CirculatingPolicy = "floor"

	_, err := NewAggregator(stub.NewRPCClient(), &fakeQuoter{}, cfg, zerolog.Nop())
	assert.Error(t, err)
}
