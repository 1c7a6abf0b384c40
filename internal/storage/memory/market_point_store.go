package memory

import (
	"context"
	"sort"
	"sync"

	"tokenomics-api/internal/domain"
	"tokenomics-api/internal/storage"
)

// DefaultPointRetention is how many points per mint NewMarketPointStore keeps.
// At the default 300s cache TTL this is roughly a month of samples.
const DefaultPointRetention = 10000

// MarketPointStore is an in-memory implementation of storage.MarketPointStore.
// It keeps only the newest retention points per mint.
type MarketPointStore struct {
	mu        sync.RWMutex
	retention int
	byMint    map[string][]*domain.MarketPoint // timestamp ASC
}

// NewMarketPointStore creates a store keeping DefaultPointRetention points per mint.
func NewMarketPointStore() *MarketPointStore {
	return NewMarketPointStoreWithRetention(DefaultPointRetention)
}

// NewMarketPointStoreWithRetention creates a store keeping at most retention points per mint.
func NewMarketPointStoreWithRetention(retention int) *MarketPointStore {
	if retention <= 0 {
		retention = DefaultPointRetention
	}
	return &MarketPointStore{
		retention: retention,
		byMint:    make(map[string][]*domain.MarketPoint),
	}
}

// search returns the index of the first point at or after timestampMs.
func search(list []*domain.MarketPoint, timestampMs int64) int {
	return sort.Search(len(list), func(i int) bool { return list[i].TimestampMs >= timestampMs })
}

func (s *MarketPointStore) exists(mint string, timestampMs int64) bool {
	list := s.byMint[mint]
	i := search(list, timestampMs)
	return i < len(list) && list[i].TimestampMs == timestampMs
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
// The oldest points of a mint are evicted once retention is exceeded.
func (s *MarketPointStore) InsertBulk(_ context.Context, points []*domain.MarketPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct {
		mint string
		ts   int64
	}
	batchKeys := make(map[key]struct{}, len(points))

	// Validate the whole batch before writing anything
	for _, p := range points {
		if p == nil || p.Mint == "" {
			return storage.ErrInvalidInput
		}
		if s.exists(p.Mint, p.TimestampMs) {
			return storage.ErrDuplicateKey
		}
		k := key{p.Mint, p.TimestampMs}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, p := range points {
		pointCopy := *p
		list := s.byMint[p.Mint]
		i := search(list, p.TimestampMs)
		list = append(list, nil)
		copy(list[i+1:], list[i:])
		list[i] = &pointCopy

		if over := len(list) - s.retention; over > 0 {
			clear(list[:over])
			list = list[over:]
		}
		s.byMint[p.Mint] = list
	}
	return nil
}

// GetByTimeRange retrieves points for a mint within [start, end] (inclusive).
func (s *MarketPointStore) GetByTimeRange(_ context.Context, mint string, start, end int64) ([]*domain.MarketPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.byMint[mint]
	lo := search(list, start)
	hi := search(list, end+1)
	if lo >= hi {
		return nil, nil
	}

	result := make([]*domain.MarketPoint, 0, hi-lo)
	for _, p := range list[lo:hi] {
		pointCopy := *p
		result = append(result, &pointCopy)
	}
	return result, nil
}

var _ storage.MarketPointStore = (*MarketPointStore)(nil)
