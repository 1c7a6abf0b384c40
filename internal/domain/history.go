package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotRecord is one freshly computed snapshot kept for audit.
// Corresponds to snapshot_history table in PostgreSQL.
type SnapshotRecord struct {
	ID         string    // PRIMARY KEY, UUID
	Mint       string    // token mint address
	Snapshot   Snapshot  // computed values
	RecordedAt time.Time // computation time (UTC)
}

// MarketPoint is a price/supply sample taken at snapshot computation.
// Corresponds to market_points table in ClickHouse.
type MarketPoint struct {
	Mint              string          // token mint address
	TimestampMs       int64           // Unix timestamp in milliseconds
	Price             decimal.Decimal // spot price
	CirculatingSupply decimal.Decimal // circulating supply at sample time
	MarketCap         decimal.Decimal // market cap at sample time
}
