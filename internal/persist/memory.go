package persist

import (
	"context"
	"sync"
)

// MemoryBackend is the zero-config default: snapshots live only as long as
// the process does. Used when persist.Config.Backend is unset or "memory".
type MemoryBackend struct {
	mu   sync.Mutex
	byID map[string]Snapshot
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{byID: make(map[string]Snapshot)}
}

func (m *MemoryBackend) Save(ctx context.Context, runID string, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[runID] = snap
	return nil
}

func (m *MemoryBackend) Load(ctx context.Context, runID string) (Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.byID[runID]
	return snap, ok, nil
}

func (m *MemoryBackend) Close() error { return nil }
