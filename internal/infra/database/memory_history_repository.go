package database

import (
	"context"
	"sync"
	"time"
)

// MemoryHistoryRepository keeps notified file names in process memory.
// History is lost on restart.
type MemoryHistoryRepository struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

func NewMemoryHistoryRepository() *MemoryHistoryRepository {
	return &MemoryHistoryRepository{entries: make(map[string]time.Time)}
}

func (r *MemoryHistoryRepository) MarkNotified(_ context.Context, fileName string, notifiedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[fileName] = notifiedAt
	return nil
}

func (r *MemoryHistoryRepository) IsNotified(_ context.Context, fileName string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[fileName]
	return ok, nil
}

func (r *MemoryHistoryRepository) Retain(_ context.Context, fileNames []string) (int, error) {
	keep := make(map[string]struct{}, len(fileNames))
	for _, name := range fileNames {
		keep[name] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for name := range r.entries {
		if _, ok := keep[name]; !ok {
			delete(r.entries, name)
			removed++
		}
	}
	return removed, nil
}

func (r *MemoryHistoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}

func (r *MemoryHistoryRepository) Close() error { return nil }
