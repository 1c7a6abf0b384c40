package tokenomics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tokenomics-api/internal/domain"
	"tokenomics-api/internal/storage"
)

// ErrHistoryDisabled is returned by History.Recent when no snapshot store is configured.
var ErrHistoryDisabled = errors.New("snapshot history is not configured")

// DefaultRecordTimeout bounds the writes of one Record call.
const DefaultRecordTimeout = 5 * time.Second

// History appends freshly computed snapshots to the audit stores.
// Either store may be nil. Write failures are logged and never reach the caller.
type History struct {
	snapshots     storage.SnapshotStore
	points        storage.MarketPointStore
	mint          string
	recordTimeout time.Duration
	logger        zerolog.Logger

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// HistoryOption configures History.
type HistoryOption func(*History)

// WithRecordTimeout overrides DefaultRecordTimeout.
func WithRecordTimeout(d time.Duration) HistoryOption {
	return func(h *History) {
		h.recordTimeout = d
	}
}

// NewHistory creates a History for mint.
func NewHistory(snapshots storage.SnapshotStore, points storage.MarketPointStore, mint string, logger zerolog.Logger, opts ...HistoryOption) *History {
	h := &History{
		snapshots:     snapshots,
		points:        points,
		mint:          mint,
		recordTimeout: DefaultRecordTimeout,
		logger:        logger.With().Str("component", "history").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RecordAsync records snap in the background and returns immediately.
// The write outlives ctx cancellation but not Close.
func (h *History) RecordAsync(ctx context.Context, snap *domain.Snapshot, at time.Time) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		h.logger.Debug().Msg("history closed, snapshot not recorded")
		return
	}
	h.pending.Add(1)
	h.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer h.pending.Done()
		h.Record(ctx, snap, at)
	}()
}

// Close stops accepting background records and waits for the pending ones.
func (h *History) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.pending.Wait()
}

// Record stores snap as computed at at.
func (h *History) Record(ctx context.Context, snap *domain.Snapshot, at time.Time) {
	ctx, cancel := context.WithTimeout(ctx, h.recordTimeout)
	defer cancel()

	at = at.UTC()

	if h.snapshots != nil {
		rec := &domain.SnapshotRecord{
			ID:         uuid.NewString(),
			Mint:       h.mint,
			Snapshot:   *snap,
			RecordedAt: at,
		}
		if err := h.snapshots.Insert(ctx, rec); err != nil {
			h.logger.Warn().Err(err).Str("id", rec.ID).Msg("record snapshot")
		}
	}

	if h.points != nil {
		point := &domain.MarketPoint{
			Mint:              h.mint,
			TimestampMs:       at.UnixMilli(),
			Price:             snap.Price,
			CirculatingSupply: snap.CirculatingSupply,
			MarketCap:         snap.MarketCap,
		}
		if err := h.points.InsertBulk(ctx, []*domain.MarketPoint{point}); err != nil {
			h.logger.Warn().Err(err).Int64("timestamp_ms", point.TimestampMs).Msg("record market point")
		}
	}
}

// Recent returns at most limit recorded snapshots, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]*domain.SnapshotRecord, error) {
	if h.snapshots == nil {
		return nil, ErrHistoryDisabled
	}
	return h.snapshots.ListRecent(ctx, h.mint, limit)
}

// Get returns one recorded snapshot. Returns storage.ErrNotFound if it does not exist.
func (h *History) Get(ctx context.Context, id string) (*domain.SnapshotRecord, error) {
	if h.snapshots == nil {
		return nil, ErrHistoryDisabled
	}
	return h.snapshots.GetByID(ctx, id)
}

// MarketPoints returns the samples recorded within [start, end] milliseconds.
func (h *History) MarketPoints(ctx context.Context, start, end int64) ([]*domain.MarketPoint, error) {
	if h.points == nil {
		return nil, ErrHistoryDisabled
	}
	return h.points.GetByTimeRange(ctx, h.mint, start, end)
}
