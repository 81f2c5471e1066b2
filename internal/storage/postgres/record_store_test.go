package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcrypto7/MigDBQuery/internal/domain"
	"github.com/hcrypto7/MigDBQuery/internal/storage"
)

func makeTestRecord(mint string, mintTime int64) *domain.TokenRecord {
	return &domain.TokenRecord{
		Mint:         mint,
		MintTime:     mintTime,
		Slot:         12345,
		MaxSOL:       1.5,
		MaxPrice:     0.0015,
		FirstBuySOL:  0.5,
		DevBuySOL:    0.3,
		BuyAmountSOL: 0.2,
		Pattern:      "pump",
		PriceSOL:     0.001,
		LimitSOL:     0.5,
		BundleCount:  3,
		BundleBuySOL: 1.2,
		Migrated:     false,
		CreatedAt:    1700000000000,
	}
}

func TestTokenRecordStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenRecordStore(pool)

	r := makeTestRecord("mint-1", 1000)
	require.NoError(t, store.Insert(ctx, r))

	got, err := store.GetByMint(ctx, "mint-1")
	require.NoError(t, err)
	assert.Equal(t, r.Mint, got.Mint)
	assert.Equal(t, r.MintTime, got.MintTime)
	assert.Equal(t, r.Slot, got.Slot)
	assert.InDelta(t, r.MaxSOL, got.MaxSOL, 1e-9)
	assert.InDelta(t, r.FirstBuySOL, got.FirstBuySOL, 1e-9)
	assert.Equal(t, r.Pattern, got.Pattern)
	assert.Equal(t, r.BundleCount, got.BundleCount)
	assert.Equal(t, r.Migrated, got.Migrated)
	assert.Equal(t, r.CreatedAt, got.CreatedAt)

	// Duplicate insert surfaces the sentinel.
	err = store.Insert(ctx, makeTestRecord("mint-1", 2000))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Missing mint surfaces ErrNotFound.
	_, err = store.GetByMint(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenRecordStore_InsertBulk(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenRecordStore(pool)

	records := []*domain.TokenRecord{
		makeTestRecord("mint-1", 1000),
		makeTestRecord("mint-2", 2000),
		makeTestRecord("mint-3", 3000),
	}
	require.NoError(t, store.InsertBulk(ctx, records))

	count, err := store.Count(ctx, domain.RecordFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// A batch containing a duplicate rolls back entirely.
	err = store.InsertBulk(ctx, []*domain.TokenRecord{
		makeTestRecord("mint-4", 4000),
		makeTestRecord("mint-1", 1000),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	count, err = store.Count(ctx, domain.RecordFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, count, "failed batch must not leave partial rows")
}

func TestTokenRecordStore_Query(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenRecordStore(pool)

	early := makeTestRecord("mint-b", 1000)
	earlyTie := makeTestRecord("mint-a", 1000)
	late := makeTestRecord("mint-c", 3000)
	late.MaxSOL = 10
	late.Pattern = "dump"
	require.NoError(t, store.InsertBulk(ctx, []*domain.TokenRecord{late, early, earlyTie}))

	// Unfiltered query comes back ordered by mint_time then mint.
	got, err := store.Query(ctx, domain.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "mint-a", got[0].Mint)
	assert.Equal(t, "mint-b", got[1].Mint)
	assert.Equal(t, "mint-c", got[2].Mint)

	// Threshold filter.
	got, err = store.Query(ctx, domain.RecordFilter{MinMaxSOL: ptr(5.0)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "mint-c", got[0].Mint)

	// Combined predicates.
	got, err = store.Query(ctx, domain.RecordFilter{
		StartTime: ptr(int64(1000)),
		EndTime:   ptr(int64(2000)),
		Pattern:   ptr("pump"),
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	count, err := store.Count(ctx, domain.RecordFilter{Pattern: ptr("dump")})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTokenRecordStore_RecordPeak(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenRecordStore(pool)

	require.NoError(t, store.Insert(ctx, makeTestRecord("mint-1", 1000)))

	// Raise the peak.
	require.NoError(t, store.RecordPeak(ctx, "mint-1", 5.0, 0.005))
	got, err := store.GetByMint(ctx, "mint-1")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, got.MaxSOL, 1e-9)
	assert.InDelta(t, 0.005, got.MaxPrice, 1e-9)

	// A lower observation leaves the peak alone.
	require.NoError(t, store.RecordPeak(ctx, "mint-1", 2.0, 0.001))
	got, err = store.GetByMint(ctx, "mint-1")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, got.MaxSOL, 1e-9)
	assert.InDelta(t, 0.005, got.MaxPrice, 1e-9)

	assert.ErrorIs(t, store.RecordPeak(ctx, "missing", 1.0, 0.001), storage.ErrNotFound)
}

func TestTokenRecordStore_MarkMigrated(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenRecordStore(pool)

	require.NoError(t, store.Insert(ctx, makeTestRecord("mint-1", 1000)))

	// Idempotent across repeated calls.
	require.NoError(t, store.MarkMigrated(ctx, "mint-1"))
	require.NoError(t, store.MarkMigrated(ctx, "mint-1"))

	got, err := store.GetByMint(ctx, "mint-1")
	require.NoError(t, err)
	assert.True(t, got.Migrated)

	assert.ErrorIs(t, store.MarkMigrated(ctx, "missing"), storage.ErrNotFound)
}
