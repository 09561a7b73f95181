package clickhouse

import (
	"context"
	"fmt"
	"time"

	"token-intel/internal/domain"
	"token-intel/internal/observability"
	"token-intel/internal/storage"
)

// VolumeSnapshotStore implements storage.VolumeSnapshotStore using ClickHouse.
type VolumeSnapshotStore struct {
	conn *Conn
}

// NewVolumeSnapshotStore creates a new VolumeSnapshotStore.
func NewVolumeSnapshotStore(conn *Conn) *VolumeSnapshotStore {
	return &VolumeSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.VolumeSnapshotStore = (*VolumeSnapshotStore)(nil)

// InsertBulk adds snapshots in one batch.
func (s *VolumeSnapshotStore) InsertBulk(ctx context.Context, snaps []*domain.VolumeSnapshot) (err error) {
	if len(snaps) == 0 {
		return nil
	}
	for _, snap := range snaps {
		if snap == nil || snap.Mint == "" || snap.BucketMinutes <= 0 {
			return storage.ErrInvalidInput
		}
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "insert_volume_snapshots", time.Since(start).Seconds(), err)
	}()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO volume_snapshots (
			mint, bucket_minutes, taken_at, volume, buy_volume, sell_volume, user_count, volatility
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snaps {
		err = batch.Append(
			snap.Mint, uint32(snap.BucketMinutes), snap.TakenAt.UTC(),
			snap.Volume, snap.BuyVolume, snap.SellVolume, uint32(snap.UserCount), snap.Volatility,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByMint returns snapshots of a mint for one bucket width, newest first.
func (s *VolumeSnapshotStore) GetByMint(ctx context.Context, mint string, bucketMinutes int, limit int) ([]*domain.VolumeSnapshot, error) {
	query := `
		SELECT mint, bucket_minutes, taken_at, volume, buy_volume, sell_volume, user_count, volatility
		FROM volume_snapshots
		WHERE mint = ? AND bucket_minutes = ?
		ORDER BY taken_at DESC
	`
	args := []interface{}{mint, uint32(bucketMinutes)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, uint64(limit))
	}

	start := time.Now()
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		observability.RecordDBQuery("clickhouse", "get_volume_snapshots", time.Since(start).Seconds(), err)
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	snaps, err := scanVolumeSnapshots(rows)
	observability.RecordDBQuery("clickhouse", "get_volume_snapshots", time.Since(start).Seconds(), err)
	return snaps, err
}

// scanVolumeSnapshots scans multiple rows.
func scanVolumeSnapshots(rows chRows) ([]*domain.VolumeSnapshot, error) {
	var snaps []*domain.VolumeSnapshot

	for rows.Next() {
		var snap domain.VolumeSnapshot
		var bucketMinutes, userCount uint32
		err := rows.Scan(
			&snap.Mint, &bucketMinutes, &snap.TakenAt,
			&snap.Volume, &snap.BuyVolume, &snap.SellVolume, &userCount, &snap.Volatility,
		)
		if err != nil {
			return nil, fmt.Errorf("scan volume snapshot row: %w", err)
		}
		snap.BucketMinutes = int(bucketMinutes)
		snap.UserCount = int(userCount)
		snaps = append(snaps, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate volume snapshot rows: %w", err)
	}

	return snaps, nil
}
