package clickhouse

import (
	"context"
	"fmt"
	"time"

	"tokenomics-api/internal/domain"
	"tokenomics-api/internal/storage"
)

// decimalScale matches the Decimal(38, 18) columns of market_points.
const decimalScale = 18

// MarketPointStore implements storage.MarketPointStore using ClickHouse.
type MarketPointStore struct {
	conn *Conn
}

// NewMarketPointStore creates a new MarketPointStore.
func NewMarketPointStore(conn *Conn) *MarketPointStore {
	return &MarketPointStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MarketPointStore = (*MarketPointStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (mint, timestamp_ms).
// MergeTree does not enforce uniqueness, so duplicates are checked before the insert.
func (s *MarketPointStore) InsertBulk(ctx context.Context, points []*domain.MarketPoint) (err error) {
	if len(points) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe("insert_market_points", start, err) }()

	// Check for intra-batch duplicates
	type key struct {
		mint        string
		timestampMs int64
	}
	seen := make(map[key]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.Mint == "" || p.TimestampMs < 0 {
			return storage.ErrInvalidInput
		}
		k := key{p.Mint, p.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.Mint, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO market_points (
			mint, timestamp_ms, price, circulating_supply, market_cap
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.Mint,
			uint64(p.TimestampMs),
			p.Price.Round(decimalScale),
			p.CirculatingSupply.Round(decimalScale),
			p.MarketCap.Round(decimalScale),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves points for a mint within [start, end] (inclusive).
func (s *MarketPointStore) GetByTimeRange(ctx context.Context, mint string, start, end int64) (points []*domain.MarketPoint, err error) {
	if start < 0 {
		start = 0
	}
	if end < start {
		return nil, nil
	}
	began := time.Now()
	defer func() { observe("get_market_points", began, err) }()

	query := `
		SELECT mint, timestamp_ms, price, circulating_supply, market_cap
		FROM market_points
		WHERE mint = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, mint, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanMarketPoints(rows)
}

// exists checks if a point with the given key exists.
func (s *MarketPointStore) exists(ctx context.Context, mint string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM market_points
		WHERE mint = ? AND timestamp_ms = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, mint, uint64(timestampMs)).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanMarketPoints scans multiple rows.
func scanMarketPoints(rows chRows) ([]*domain.MarketPoint, error) {
	var points []*domain.MarketPoint

	for rows.Next() {
		var p domain.MarketPoint
		var timestampMs uint64

		err := rows.Scan(&p.Mint, &timestampMs, &p.Price, &p.CirculatingSupply, &p.MarketCap)
		if err != nil {
			return nil, fmt.Errorf("scan market point row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate market point rows: %w", err)
	}
	return points, nil
}
