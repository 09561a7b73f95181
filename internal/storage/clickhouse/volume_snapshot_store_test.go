package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-intel/internal/domain"
	"token-intel/internal/storage"
)

func TestVolumeSnapshotStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewVolumeSnapshotStore(conn)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, store.InsertBulk(ctx, nil))

	snaps := []*domain.VolumeSnapshot{
		{Mint: "mint-1", BucketMinutes: 15, TakenAt: base, Volume: 12.5, BuyVolume: 10, SellVolume: 2.5, UserCount: 4, Volatility: 1.25},
		{Mint: "mint-1", BucketMinutes: 15, TakenAt: base.Add(time.Minute), Volume: 3},
		{Mint: "mint-1", BucketMinutes: 60, TakenAt: base, Volume: 40},
		{Mint: "mint-2", BucketMinutes: 15, TakenAt: base, Volume: 1},
	}
	require.NoError(t, store.InsertBulk(ctx, snaps))

	got, err := store.GetByMint(ctx, "mint-1", 15, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 3.0, got[0].Volume)
	assert.Equal(t, "mint-1", got[1].Mint)
	assert.Equal(t, 15, got[1].BucketMinutes)
	assert.True(t, base.Equal(got[1].TakenAt))
	assert.Equal(t, 12.5, got[1].Volume)
	assert.Equal(t, 10.0, got[1].BuyVolume)
	assert.Equal(t, 2.5, got[1].SellVolume)
	assert.Equal(t, 4, got[1].UserCount)
	assert.Equal(t, 1.25, got[1].Volatility)

	got, err = store.GetByMint(ctx, "mint-1", 15, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3.0, got[0].Volume)

	got, err = store.GetByMint(ctx, "unknown", 15, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestVolumeSnapshotStore_InvalidInput(t *testing.T) {
	store := NewVolumeSnapshotStore(nil)
	err := store.InsertBulk(context.Background(), []*domain.VolumeSnapshot{{Mint: "m"}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
