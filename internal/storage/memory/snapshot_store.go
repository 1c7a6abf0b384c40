package memory

import (
	"context"
	"sort"
	"sync"

	"tokenomics-api/internal/domain"
	"tokenomics-api/internal/storage"
)

// DefaultSnapshotRetention is how many records per mint NewSnapshotStore keeps.
const DefaultSnapshotRetention = 100

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
// It keeps only the newest retention records per mint.
type SnapshotStore struct {
	mu        sync.RWMutex
	retention int
	byID      map[string]*domain.SnapshotRecord
	byMint    map[string][]*domain.SnapshotRecord // newest first
}

// NewSnapshotStore creates a store keeping DefaultSnapshotRetention records per mint.
func NewSnapshotStore() *SnapshotStore {
	return NewSnapshotStoreWithRetention(DefaultSnapshotRetention)
}

// NewSnapshotStoreWithRetention creates a store keeping at most retention records per mint.
func NewSnapshotStoreWithRetention(retention int) *SnapshotStore {
	if retention <= 0 {
		retention = DefaultSnapshotRetention
	}
	return &SnapshotStore{
		retention: retention,
		byID:      make(map[string]*domain.SnapshotRecord),
		byMint:    make(map[string][]*domain.SnapshotRecord),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if id exists.
// The oldest record of the mint is evicted once retention is exceeded.
func (s *SnapshotStore) Insert(_ context.Context, r *domain.SnapshotRecord) error {
	if r == nil || r.ID == "" || r.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[r.ID]; exists {
		return storage.ErrDuplicateKey
	}

	rec := copyRecord(r)
	list := s.byMint[r.Mint]
	i := sort.Search(len(list), func(i int) bool { return newer(rec, list[i]) })
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = rec
	s.byID[rec.ID] = rec

	for len(list) > s.retention {
		evicted := list[len(list)-1]
		list[len(list)-1] = nil
		list = list[:len(list)-1]
		delete(s.byID, evicted.ID)
	}
	s.byMint[r.Mint] = list
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(_ context.Context, id string) (*domain.SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.byID[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyRecord(r), nil
}

// ListRecent retrieves at most limit records for a mint, newest first.
func (s *SnapshotStore) ListRecent(_ context.Context, mint string, limit int) ([]*domain.SnapshotRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.byMint[mint]
	if len(list) > limit {
		list = list[:limit]
	}

	result := make([]*domain.SnapshotRecord, len(list))
	for i, r := range list {
		result[i] = copyRecord(r)
	}
	return result, nil
}

// newer orders records by recorded_at DESC, id DESC.
func newer(a, b *domain.SnapshotRecord) bool {
	if a.RecordedAt.Equal(b.RecordedAt) {
		return a.ID > b.ID
	}
	return a.RecordedAt.After(b.RecordedAt)
}

// copyRecord returns a deep copy so callers cannot mutate stored holders.
func copyRecord(r *domain.SnapshotRecord) *domain.SnapshotRecord {
	c := *r
	c.Snapshot.TopHolders = append([]domain.Holder{}, r.Snapshot.TopHolders...)
	return &c
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
