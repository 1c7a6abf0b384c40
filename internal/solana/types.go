package solana

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TokenAmount is an SPL token amount as reported by RPC.
type TokenAmount struct {
	Amount         string   // raw amount in base units
	Decimals       uint8    // mint decimals
	UIAmount       *float64 // deprecated float form, may be nil
	UIAmountString string   // human-scaled amount
}

// TokenAccountBalance is one entry of getTokenLargestAccounts.
type TokenAccountBalance struct {
	Address string
	TokenAmount
}

// Decimal returns the human-scaled amount.
// UIAmountString is preferred; the raw amount scaled by decimals is the fallback.
func (a TokenAmount) Decimal() (decimal.Decimal, error) {
	if a.UIAmountString != "" {
		d, err := decimal.NewFromString(a.UIAmountString)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse uiAmountString %q: %w", a.UIAmountString, err)
		}
		return d, nil
	}
	if a.Amount != "" {
		raw, err := decimal.NewFromString(a.Amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse amount %q: %w", a.Amount, err)
		}
		return raw.Shift(-int32(a.Decimals)), nil
	}
	if a.UIAmount != nil {
		return decimal.NewFromFloat(*a.UIAmount), nil
	}
	return decimal.Zero, fmt.Errorf("token amount has no value")
}

// DisplayAmount returns the amount as a human readable string.
func (a TokenAmount) DisplayAmount() string {
	if a.UIAmountString != "" {
		return a.UIAmountString
	}
	d, err := a.Decimal()
	if err != nil {
		return "0"
	}
	return d.String()
}
