// Package pricing fetches spot prices from CoinGecko.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"tokenomics-api/internal/observability"
	"tokenomics-api/internal/upstream"
)

const (
	sourceName = "coingecko"

	// APIKeyHeader carries the demo-plan API key.
	APIKeyHeader = "x-cg-demo-api-key"

	DefaultTimeout    = 10 * time.Second
	DefaultRetryCount = 2
)

// Quoter returns the spot price of a token in a reference currency.
type Quoter interface {
	SpotPrice(ctx context.Context, tokenID, currency string) (decimal.Decimal, error)
}

// CoinGeckoClient implements Quoter against the CoinGecko simple/price API.
type CoinGeckoClient struct {
	http   *resty.Client
	apiKey string
}

// Compile-time interface check.
var _ Quoter = (*CoinGeckoClient)(nil)

// Option configures CoinGeckoClient.
type Option func(*resty.Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) {
		c.SetTimeout(d)
	}
}

// WithRetryCount sets how many times transport failures are retried.
func WithRetryCount(n int) Option {
	return func(c *resty.Client) {
		c.SetRetryCount(n)
	}
}

// NewCoinGeckoClient creates a client for baseURL. An empty apiKey makes every
// lookup fail with upstream.ErrMissingCredential without touching the network.
func NewCoinGeckoClient(baseURL, apiKey string, opts ...Option) *CoinGeckoClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(DefaultTimeout).
		SetRetryCount(DefaultRetryCount).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(client)
	}
	return &CoinGeckoClient{http: client, apiKey: apiKey}
}

// SpotPrice returns the price of tokenID in currency.
func (c *CoinGeckoClient) SpotPrice(ctx context.Context, tokenID, currency string) (decimal.Decimal, error) {
	if c.apiKey == "" {
		return decimal.Zero, upstream.MissingCredential(sourceName)
	}

	start := time.Now()
	price, err := c.spotPrice(ctx, tokenID, currency)
	observability.RecordUpstreamCall(sourceName, "simple_price", time.Since(start).Seconds(), string(upstream.KindOf(err)))
	return price, err
}

func (c *CoinGeckoClient) spotPrice(ctx context.Context, tokenID, currency string) (decimal.Decimal, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(APIKeyHeader, c.apiKey).
		SetQueryParams(map[string]string{
			"ids":           tokenID,
			"vs_currencies": currency,
		}).
		Get("/simple/price")
	if err != nil {
		return decimal.Zero, upstream.Network(sourceName, fmt.Errorf("simple/price: %w", err))
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return decimal.Zero, upstream.HTTPStatus(sourceName, resp.StatusCode(), resp.String())
	}

	// {"copper-inu-2": {"usd": 0.00012}}
	var body map[string]map[string]json.Number
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return decimal.Zero, upstream.Parse(sourceName, fmt.Errorf("decode simple/price: %w", err))
	}

	raw, ok := body[tokenID][currency]
	if !ok {
		return decimal.Zero, upstream.Parse(sourceName, fmt.Errorf("no %s price for %s", currency, tokenID))
	}

	price, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, upstream.Parse(sourceName, fmt.Errorf("parse price %q: %w", raw, err))
	}
	return price, nil
}
