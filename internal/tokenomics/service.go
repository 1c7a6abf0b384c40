package tokenomics

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"tokenomics-api/internal/cache"
	"tokenomics-api/internal/domain"
)

// SnapshotKey is the single cache key the snapshot is stored under.
const SnapshotKey = "tokenomics"

// Computer produces a fresh snapshot.
type Computer interface {
	Compute(ctx context.Context) *domain.Snapshot
}

// Service serves cached snapshots. It never returns an error to its caller.
type Service struct {
	computer Computer
	cache    *cache.TTL[*domain.Snapshot]
	ttl      time.Duration
	history  *History
	logger   zerolog.Logger
	now      func() time.Time
}

// ServiceOption configures Service.
type ServiceOption func(*Service)

// WithHistory records every fresh computation to h in the background.
func WithHistory(h *History) ServiceOption {
	return func(s *Service) {
		s.history = h
	}
}

// WithClock overrides the time source used for history timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service memoizing computer's result in c for ttl.
func NewService(computer Computer, c *cache.TTL[*domain.Snapshot], ttl time.Duration, logger zerolog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		computer: computer,
		cache:    c,
		ttl:      ttl,
		logger:   logger.With().Str("component", "tokenomics").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetTokenomicsSnapshot returns the cached snapshot, computing it on a miss.
func (s *Service) GetTokenomicsSnapshot(ctx context.Context) *domain.Snapshot {
	snap, err := s.cache.GetOrCompute(ctx, SnapshotKey, s.ttl, func(ctx context.Context) (*domain.Snapshot, error) {
		snap := s.computer.Compute(ctx)
		if s.history != nil {
			s.history.RecordAsync(ctx, snap, s.now())
		}
		return snap, nil
	})
	if err != nil || snap == nil {
		// Compute never fails; keep the never-error contract if that changes.
		s.logger.Error().Err(err).Msg("snapshot unavailable, serving empty snapshot")
		return &domain.Snapshot{TopHolders: []domain.Holder{}}
	}
	return snap
}

// History returns the history recorder, nil when history is disabled.
func (s *Service) History() *History {
	return s.history
}
