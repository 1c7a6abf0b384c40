package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"tokenomics-api/internal/domain"
	"tokenomics-api/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
// Decimals travel as text so NUMERIC columns keep full precision.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

const selectSnapshotColumns = `
	SELECT id::text, mint,
		total_supply::text, burned_amount::text, circulating_supply::text,
		price::text, market_cap::text, top_holders, recorded_at
	FROM snapshot_history
`

// Insert adds a new record. Returns ErrDuplicateKey if id exists.
func (s *SnapshotStore) Insert(ctx context.Context, r *domain.SnapshotRecord) (err error) {
	if r == nil || r.ID == "" || r.Mint == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observe("insert_snapshot", start, err) }()

	holders := r.Snapshot.TopHolders
	if holders == nil {
		holders = []domain.Holder{}
	}
	holdersJSON, err := json.Marshal(holders)
	if err != nil {
		return fmt.Errorf("marshal top holders: %w", err)
	}

	query := `
		INSERT INTO snapshot_history (
			id, mint, total_supply, burned_amount, circulating_supply,
			price, market_cap, top_holders, recorded_at
		) VALUES (
			$1::uuid, $2, $3::text::numeric, $4::text::numeric, $5::text::numeric,
			$6::text::numeric, $7::text::numeric, $8::text::jsonb, $9
		)
	`

	snap := r.Snapshot
	_, err = s.pool.Exec(ctx, query,
		r.ID,
		r.Mint,
		snap.TotalSupply.String(),
		snap.BurnedAmount.String(),
		snap.CirculatingSupply.String(),
		snap.Price.String(),
		snap.MarketCap.String(),
		string(holdersJSON),
		r.RecordedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(ctx context.Context, id string) (rec *domain.SnapshotRecord, err error) {
	start := time.Now()
	defer func() { observe("get_snapshot", start, err) }()

	row := s.pool.QueryRow(ctx, selectSnapshotColumns+` WHERE id::text = $1`, id)
	rec, err = scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot by id: %w", err)
	}
	return rec, nil
}

// ListRecent retrieves at most limit records for a mint, newest first.
func (s *SnapshotStore) ListRecent(ctx context.Context, mint string, limit int) (records []*domain.SnapshotRecord, err error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observe("list_snapshots", start, err) }()

	query := selectSnapshotColumns + `
		WHERE mint = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, mint, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent snapshots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return records, nil
}

// scanSnapshot scans one row selected with selectSnapshotColumns.
func scanSnapshot(row pgx.Row) (*domain.SnapshotRecord, error) {
	var (
		rec                                     domain.SnapshotRecord
		total, burned, circulating, price, mcap string
		holdersJSON                             []byte
	)

	err := row.Scan(
		&rec.ID,
		&rec.Mint,
		&total,
		&burned,
		&circulating,
		&price,
		&mcap,
		&holdersJSON,
		&rec.RecordedAt,
	)
	if err != nil {
		return nil, err
	}

	fields := []struct {
		in  string
		out *decimal.Decimal
	}{
		{total, &rec.Snapshot.TotalSupply},
		{burned, &rec.Snapshot.BurnedAmount},
		{circulating, &rec.Snapshot.CirculatingSupply},
		{price, &rec.Snapshot.Price},
		{mcap, &rec.Snapshot.MarketCap},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.in)
		if err != nil {
			return nil, fmt.Errorf("parse numeric %q: %w", f.in, err)
		}
		*f.out = d
	}

	rec.Snapshot.TopHolders = []domain.Holder{}
	if err := json.Unmarshal(holdersJSON, &rec.Snapshot.TopHolders); err != nil {
		return nil, fmt.Errorf("decode top holders: %w", err)
	}
	rec.RecordedAt = rec.RecordedAt.UTC()
	return &rec, nil
}
