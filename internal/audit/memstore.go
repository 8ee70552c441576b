package audit

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and storeless deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// UpsertDecision inserts or replaces the record for its fingerprint.
func (m *MemoryStore) UpsertDecision(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := m.records[rec.Fingerprint]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	m.records[rec.Fingerprint] = *rec
	return nil
}

// GetDecision retrieves one record by fingerprint.
func (m *MemoryStore) GetDecision(_ context.Context, fingerprint string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[fingerprint]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// ListDecisions returns matching records, newest first.
func (m *MemoryStore) ListDecisions(_ context.Context, f Filter) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for _, rec := range m.records {
		if f.Category != "" && !strings.EqualFold(rec.Category, f.Category) {
			continue
		}
		if f.Source != "" && !strings.EqualFold(rec.Source, f.Source) {
			continue
		}
		if f.Action != "" && !strings.EqualFold(rec.Action, f.Action) {
			continue
		}
		if !f.Since.IsZero() && rec.CreatedAt.Before(f.Since) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Stats aggregates the counters over all records.
func (m *MemoryStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var s Stats
	for _, rec := range m.records {
		s.TotalChecked++
		if rec.IsSpam {
			s.SpamCount++
		}
		if rec.Action == "hard_block" {
			s.BlockedCount++
		}
		if rec.Source == "local_fallback" {
			s.FallbackCount++
		}
	}
	return &s, nil
}

// Len reports the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
