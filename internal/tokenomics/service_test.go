package tokenomics

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenomics-api/internal/cache"
	"tokenomics-api/internal/config"
	"tokenomics-api/internal/domain"
	"tokenomics-api/internal/storage"
	"tokenomics-api/internal/storage/memory"
)

func newTestService(t *testing.T, ttl time.Duration, opts ...ServiceOption) (*Service, *fakeQuoter, *cache.TTL[*domain.Snapshot]) {
	t.Helper()
	rpc, quoter := healthyUpstream(t)
	agg := newTestAggregator(t, rpc, quoter, testConfig("key"))
	c := cache.New[*domain.Snapshot](time.Minute)
	return NewService(agg, c, ttl, zerolog.Nop(), opts...), quoter, c
}

func TestService_IdempotentWithinTTL(t *testing.T) {
	svc, quoter, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	first := svc.GetTokenomicsSnapshot(ctx)
	quoter.setPrice("0.5")
	second := svc.GetTokenomicsSnapshot(ctx)

	assert.Same(t, first, second)
	assert.Equal(t, "0.002", second.Price.String())
	assert.Equal(t, 1, quoter.callCount())
}

func TestService_RecomputesAfterExpiry(t *testing.T) {
	svc, quoter, _ := newTestService(t, 30*time.Millisecond)
	ctx := context.Background()

	first := svc.GetTokenomicsSnapshot(ctx)
	quoter.setPrice("0.5")
	time.Sleep(60 * time.Millisecond)
	second := svc.GetTokenomicsSnapshot(ctx)

	assert.Equal(t, "0.002", first.Price.String())
	assert.Equal(t, "0.5", second.Price.String())
	assert.Equal(t, 2, quoter.callCount())
}

func TestService_ClearForcesRecompute(t *testing.T) {
	svc, quoter, c := newTestService(t, time.Hour)
	ctx := context.Background()

	svc.GetTokenomicsSnapshot(ctx)
	c.Clear(SnapshotKey)
	svc.GetTokenomicsSnapshot(ctx)

	assert.Equal(t, 2, quoter.callCount())
}

func TestService_JSONFieldNames(t *testing.T) {
	svc, _, _ := newTestService(t, time.Hour)

	body, err := json.Marshal(svc.GetTokenomicsSnapshot(context.Background()))
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &fields))
	assert.Len(t, fields, 6)
	for _, name := range []string{"totalSupply", "burnedAmount", "circulatingSupply", "topHolders", "marketCap", "price"} {
		assert.Contains(t, fields, name)
	}
	assert.Equal(t, "1500", string(fields["marketCap"]))
}

func TestService_RecordsHistoryOnFreshCompute(t *testing.T) {
	snapshots := memory.NewSnapshotStore()
	points := memory.NewMarketPointStore()
	history := NewHistory(snapshots, points, config.CopperInuMint, zerolog.Nop())

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc, _, c := newTestService(t, time.Hour, WithHistory(history), WithClock(func() time.Time { return at }))
	ctx := context.Background()

	svc.GetTokenomicsSnapshot(ctx)
	svc.GetTokenomicsSnapshot(ctx) // cached, not recorded
	history.pending.Wait()

	records, err := svc.History().Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, config.CopperInuMint, records[0].Mint)
	assert.Equal(t, at, records[0].RecordedAt)
	assert.Equal(t, "750000", records[0].Snapshot.CirculatingSupply.String())
	assert.NotEmpty(t, records[0].ID)

	got, err := history.Get(ctx, records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, records[0].ID, got.ID)
	_, err = history.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	mp, err := history.MarketPoints(ctx, 0, at.UnixMilli())
	require.NoError(t, err)
	require.Len(t, mp, 1)
	assert.Equal(t, "1500", mp[0].MarketCap.String())

	// A second fresh compute at the same instant collides on the market point key
	// but must still serve the snapshot.
	c.Clear(SnapshotKey)
	snap := svc.GetTokenomicsSnapshot(ctx)
	assert.NotNil(t, snap)
	history.pending.Wait()
	records, err = svc.History().Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestHistory_Disabled(t *testing.T) {
	h := NewHistory(nil, nil, config.CopperInuMint, zerolog.Nop())

	h.Record(context.Background(), &domain.Snapshot{}, time.Now())

	_, err := h.Recent(context.Background(), 5)
	assert.ErrorIs(t, err, ErrHistoryDisabled)
	_, err = h.MarketPoints(context.Background(), 0, 1)
	assert.ErrorIs(t, err, ErrHistoryDisabled)
	_, err = h.Get(context.Background(), "id")
	assert.ErrorIs(t, err, ErrHistoryDisabled)
}

// blockingSnapshotStore holds every Insert until release is closed or ctx ends.
type blockingSnapshotStore struct {
	*memory.SnapshotStore
	release  chan struct{}
	inserted atomic.Int32
}

func (s *blockingSnapshotStore) Insert(ctx context.Context, r *domain.SnapshotRecord) error {
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.inserted.Add(1)
	return s.SnapshotStore.Insert(ctx, r)
}

func TestService_SlowHistoryDoesNotDelaySnapshot(t *testing.T) {
	store := &blockingSnapshotStore{SnapshotStore: memory.NewSnapshotStore(), release: make(chan struct{})}
	history := NewHistory(store, memory.NewMarketPointStore(), config.CopperInuMint, zerolog.Nop())
	svc, _, _ := newTestService(t, time.Hour, WithHistory(history))

	start := time.Now()
	snap := svc.GetTokenomicsSnapshot(context.Background())
	elapsed := time.Since(start)

	require.NotNil(t, snap)
	assert.Equal(t, "1500", snap.MarketCap.String())
	assert.Less(t, elapsed, time.Second)
	assert.Zero(t, store.inserted.Load())

	close(store.release)
	history.Close()
	assert.Equal(t, int32(1), store.inserted.Load())
}

func TestService_HistoryOutlivesRequestContext(t *testing.T) {
	store := &blockingSnapshotStore{SnapshotStore: memory.NewSnapshotStore(), release: make(chan struct{})}
	history := NewHistory(store, nil, config.CopperInuMint, zerolog.Nop())
	svc, _, _ := newTestService(t, time.Hour, WithHistory(history))

	ctx, cancel := context.WithCancel(context.Background())
	svc.GetTokenomicsSnapshot(ctx)
	cancel()

	close(store.release)
	history.Close()
	assert.Equal(t, int32(1), store.inserted.Load())
}

func TestHistory_RecordTimeout(t *testing.T) {
	store := &blockingSnapshotStore{SnapshotStore: memory.NewSnapshotStore(), release: make(chan struct{})}
	history := NewHistory(store, nil, config.CopperInuMint, zerolog.Nop(), WithRecordTimeout(20*time.Millisecond))

	history.RecordAsync(context.Background(), &domain.Snapshot{}, time.Now())

	done := make(chan struct{})
	go func() {
		history.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the record timeout")
	}
	assert.Zero(t, store.inserted.Load())
}

func TestHistory_ClosedRejectsRecords(t *testing.T) {
	snapshots := memory.NewSnapshotStore()
	history := NewHistory(snapshots, nil, config.CopperInuMint, zerolog.Nop())
	history.Close()

	history.RecordAsync(context.Background(), &domain.Snapshot{}, time.Now())
	history.pending.Wait()

	records, err := history.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
