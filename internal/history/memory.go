package history

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps records in memory. Used when no database path is set.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []*Record
	nextID  int64
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1}
}

// Save stores a copy of r.
func (m *MemoryRepository) Save(ctx context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r.ID = m.nextID
	m.nextID++

	stored := *r
	m.records = append(m.records, &stored)
	return nil
}

// Recent returns up to limit records, newest first.
func (m *MemoryRepository) Recent(ctx context.Context, limit int) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sorted := make([]*Record, len(m.records))
	copy(sorted, m.records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Time.Equal(sorted[j].Time) {
			return sorted[i].ID > sorted[j].ID
		}
		return sorted[i].Time.After(sorted[j].Time)
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]*Record, len(sorted))
	for i, r := range sorted {
		c := *r
		out[i] = &c
	}
	return out, nil
}

// Latest returns the newest record.
func (m *MemoryRepository) Latest(ctx context.Context) (*Record, error) {
	recs, err := m.Recent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs[0], nil
}

// Prune removes records older than before.
func (m *MemoryRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	var removed int64
	for _, r := range m.records {
		if r.Time.Before(before) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return removed, nil
}

// Close is a no-op.
func (m *MemoryRepository) Close() error {
	return nil
}
