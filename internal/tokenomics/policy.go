package tokenomics

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tokenomics-api/internal/config"
)

// CirculatingPolicy decides how circulating supply is derived from total and burned amounts.
type CirculatingPolicy string

const (
	// Unclamped subtracts burned from total even when total is zero.
	Unclamped CirculatingPolicy = config.PolicyUnclamped
	// ClampZeroSupply reports zero circulating supply while total supply is not positive.
	ClampZeroSupply CirculatingPolicy = config.PolicyClampZeroSupply
)

// ParseCirculatingPolicy converts a configuration value to a policy. Empty means Unclamped.
func ParseCirculatingPolicy(s string) (CirculatingPolicy, error) {
	switch p := CirculatingPolicy(s); p {
	case "":
		return Unclamped, nil
	case Unclamped, ClampZeroSupply:
		return p, nil
	default:
		return "", fmt.Errorf("unknown circulating policy %q", s)
	}
}

// Circulating returns total minus burned under policy p.
func (p CirculatingPolicy) Circulating(total, burned decimal.Decimal) decimal.Decimal {
	if p == ClampZeroSupply && !total.IsPositive() {
		return decimal.Zero
	}
	return total.Sub(burned)
}

// MarketCap returns circulating * price when both are positive, zero otherwise.
func MarketCap(circulating, price decimal.Decimal) decimal.Decimal {
	if !circulating.IsPositive() || !price.IsPositive() {
		return decimal.Zero
	}
	return circulating.Mul(price)
}
