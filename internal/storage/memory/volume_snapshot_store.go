package memory

import (
	"context"
	"sort"
	"sync"

	"token-intel/internal/domain"
	"token-intel/internal/storage"
)

// VolumeSnapshotStore is an in-memory implementation of storage.VolumeSnapshotStore.
type VolumeSnapshotStore struct {
	mu     sync.RWMutex
	byMint map[string][]*domain.VolumeSnapshot
}

// NewVolumeSnapshotStore creates a new in-memory volume snapshot store.
func NewVolumeSnapshotStore() *VolumeSnapshotStore {
	return &VolumeSnapshotStore{byMint: make(map[string][]*domain.VolumeSnapshot)}
}

// Compile-time interface check.
var _ storage.VolumeSnapshotStore = (*VolumeSnapshotStore)(nil)

// InsertBulk adds snapshots.
func (s *VolumeSnapshotStore) InsertBulk(_ context.Context, snaps []*domain.VolumeSnapshot) error {
	for _, snap := range snaps {
		if snap == nil || snap.Mint == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snaps {
		snapCopy := *snap
		s.byMint[snap.Mint] = append(s.byMint[snap.Mint], &snapCopy)
	}
	return nil
}

// GetByMint returns snapshots of a mint for one bucket width, newest first.
func (s *VolumeSnapshotStore) GetByMint(_ context.Context, mint string, bucketMinutes int, limit int) ([]*domain.VolumeSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.VolumeSnapshot
	for _, snap := range s.byMint[mint] {
		if snap.BucketMinutes == bucketMinutes {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool { return result[i].TakenAt.After(result[j].TakenAt) })

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
