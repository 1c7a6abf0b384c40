package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Snapshot is the aggregated tokenomics view of one mint.
// Every field has a usable zero value; a failed upstream query leaves its field at zero.
type Snapshot struct {
	TotalSupply       decimal.Decimal // human-scaled total minted units
	BurnedAmount      decimal.Decimal // units held by the burn wallet's token account
	CirculatingSupply decimal.Decimal // TotalSupply - BurnedAmount
	TopHolders        []Holder        // at most TopHoldersLimit, upstream order
	Price             decimal.Decimal // spot price in reference currency
	MarketCap         decimal.Decimal // CirculatingSupply * Price, or zero
}

// Holder is one of the largest token accounts of a mint.
type Holder struct {
	Address string `json:"address"`
	Amount  string `json:"amount"` // upstream uiAmountString, kept verbatim
}

// TopHoldersLimit caps Snapshot.TopHolders.
const TopHoldersLimit = 5

// snapshotJSON is the wire shape. Decimals are written as JSON numbers.
type snapshotJSON struct {
	TotalSupply       json.Number `json:"totalSupply"`
	BurnedAmount      json.Number `json:"burnedAmount"`
	CirculatingSupply json.Number `json:"circulatingSupply"`
	TopHolders        []Holder    `json:"topHolders"`
	MarketCap         json.Number `json:"marketCap"`
	Price             json.Number `json:"price"`
}

// MarshalJSON implements json.Marshaler.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	holders := s.TopHolders
	if holders == nil {
		holders = []Holder{}
	}
	return json.Marshal(snapshotJSON{
		TotalSupply:       json.Number(s.TotalSupply.String()),
		BurnedAmount:      json.Number(s.BurnedAmount.String()),
		CirculatingSupply: json.Number(s.CirculatingSupply.String()),
		TopHolders:        holders,
		MarketCap:         json.Number(s.MarketCap.String()),
		Price:             json.Number(s.Price.String()),
	})
}

// UnmarshalJSON implements json.Unmarshaler. Missing numeric fields decode as zero.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw snapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	fields := []struct {
		name string
		in   json.Number
		out  *decimal.Decimal
	}{
		{"totalSupply", raw.TotalSupply, &s.TotalSupply},
		{"burnedAmount", raw.BurnedAmount, &s.BurnedAmount},
		{"circulatingSupply", raw.CirculatingSupply, &s.CirculatingSupply},
		{"marketCap", raw.MarketCap, &s.MarketCap},
		{"price", raw.Price, &s.Price},
	}
	for _, f := range fields {
		if f.in == "" {
			*f.out = decimal.Zero
			continue
		}
		d, err := decimal.NewFromString(string(f.in))
		if err != nil {
			return fmt.Errorf("decode %s: %w", f.name, err)
		}
		*f.out = d
	}

	s.TopHolders = raw.TopHolders
	if s.TopHolders == nil {
		s.TopHolders = []Holder{}
	}
	return nil
}
