package storage

import (
	"context"

	"tokenomics-api/internal/domain"
)

// SnapshotStore provides access to snapshot_history storage.
type SnapshotStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, r *domain.SnapshotRecord) error

	// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.SnapshotRecord, error)

	// ListRecent retrieves at most limit records for a mint, newest first.
	ListRecent(ctx context.Context, mint string, limit int) ([]*domain.SnapshotRecord, error)
}

// MarketPointStore provides access to market_points storage.
type MarketPointStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (mint, timestamp_ms).
	InsertBulk(ctx context.Context, points []*domain.MarketPoint) error

	// GetByTimeRange retrieves points for a mint within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, mint string, start, end int64) ([]*domain.MarketPoint, error)
}
