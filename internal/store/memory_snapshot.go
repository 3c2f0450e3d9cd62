// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/MKhiriev/weave-sync/models"
)

// MemorySnapshotRepository keeps snapshots in a map. It satisfies
// SnapshotRepository for tests and for sessions without durable storage.
type MemorySnapshotRepository struct {
	mu    sync.RWMutex
	items map[string]models.Snapshot
}

var _ SnapshotRepository = (*MemorySnapshotRepository)(nil)

func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{items: make(map[string]models.Snapshot)}
}

func (m *MemorySnapshotRepository) LoadSnapshot(_ context.Context, key models.DocumentKey) (models.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.items[key.String()]
	if !ok {
		return models.Snapshot{}, ErrSnapshotNotFound
	}
	s.Content = slices.Clone(s.Content)
	return s, nil
}

func (m *MemorySnapshotRepository) UpdateSnapshot(_ context.Context, key models.DocumentKey, content []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[key.String()]; !ok {
		return 0, nil
	}
	m.items[key.String()] = newMemorySnapshot(key, content)
	return 1, nil
}

func (m *MemorySnapshotRepository) InsertSnapshot(_ context.Context, key models.DocumentKey, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[key.String()]; ok {
		return ErrSnapshotAlreadyExists
	}
	m.items[key.String()] = newMemorySnapshot(key, content)
	return nil
}

// Len returns the number of stored snapshots.
func (m *MemorySnapshotRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func newMemorySnapshot(key models.DocumentKey, content []byte) models.Snapshot {
	return models.Snapshot{
		Key:       key,
		Content:   slices.Clone(content),
		UpdatedAt: time.Now().UTC(),
	}
}
