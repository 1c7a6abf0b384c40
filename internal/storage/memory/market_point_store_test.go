package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"tokenomics-api/internal/domain"
	"tokenomics-api/internal/storage"
)

func TestMarketPointStore_InsertBulkAndGet(t *testing.T) {
	store := NewMarketPointStore()
	ctx := context.Background()

	points := []*domain.MarketPoint{
		{Mint: "m1", TimestampMs: 2000, Price: decimal.RequireFromString("0.002")},
		{Mint: "m1", TimestampMs: 1000, Price: decimal.RequireFromString("0.001")},
	}

	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByTimeRange(ctx, "m1", 0, 5000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("Expected 2 points, got %d", len(result))
	}
	if result[0].TimestampMs != 1000 {
		t.Errorf("Expected ascending order, first timestamp %d", result[0].TimestampMs)
	}
}

func TestMarketPointStore_IntraBatchDuplicate(t *testing.T) {
	store := NewMarketPointStore()
	ctx := context.Background()

	points := []*domain.MarketPoint{
		{Mint: "m1", TimestampMs: 1000},
		{Mint: "m1", TimestampMs: 1000},
	}

	err := store.InsertBulk(ctx, points)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}

	// Verify nothing was inserted
	result, _ := store.GetByTimeRange(ctx, "m1", 0, 5000)
	if len(result) != 0 {
		t.Errorf("Expected 0 points (rollback), got %d", len(result))
	}
}

func TestMarketPointStore_DuplicateKey(t *testing.T) {
	store := NewMarketPointStore()
	ctx := context.Background()

	points := []*domain.MarketPoint{{Mint: "m1", TimestampMs: 1000}}
	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, points)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestMarketPointStore_GetByTimeRange(t *testing.T) {
	store := NewMarketPointStore()
	ctx := context.Background()

	points := []*domain.MarketPoint{
		{Mint: "m1", TimestampMs: 1000},
		{Mint: "m1", TimestampMs: 2000},
		{Mint: "m1", TimestampMs: 3000},
		{Mint: "m2", TimestampMs: 2000},
	}
	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByTimeRange(ctx, "m1", 1500, 3000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("Expected 2 points in [1500, 3000], got %d", len(result))
	}
}

func TestMarketPointStore_InvalidInput(t *testing.T) {
	store := NewMarketPointStore()

	err := store.InsertBulk(context.Background(), []*domain.MarketPoint{{TimestampMs: 1}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestMarketPointStore_Retention(t *testing.T) {
	store := NewMarketPointStoreWithRetention(3)
	ctx := context.Background()

	for _, ts := range []int64{3000, 1000, 5000, 2000, 4000} {
		if err := store.InsertBulk(ctx, []*domain.MarketPoint{{Mint: "m1", TimestampMs: ts}}); err != nil {
			t.Fatalf("InsertBulk %d failed: %v", ts, err)
		}
	}

	result, err := store.GetByTimeRange(ctx, "m1", 0, 10000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("Expected 3 retained points, got %d", len(result))
	}
	for i, want := range []int64{3000, 4000, 5000} {
		if result[i].TimestampMs != want {
			t.Errorf("Expected point %d at %d, got %d", i, want, result[i].TimestampMs)
		}
	}

	// An evicted timestamp is no longer a duplicate
	if err := store.InsertBulk(ctx, []*domain.MarketPoint{{Mint: "m1", TimestampMs: 6000}}); err != nil {
		t.Fatalf("InsertBulk 6000 failed: %v", err)
	}
	result, _ = store.GetByTimeRange(ctx, "m1", 0, 10000)
	if len(result) != 3 || result[0].TimestampMs != 4000 {
		t.Errorf("Expected window [4000 5000 6000], got %d points starting at %d", len(result), result[0].TimestampMs)
	}
}
