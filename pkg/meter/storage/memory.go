package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tollgate-hq/tollgate/pkg/meter/history"
)

// MemoryStore implements Store with an in-process map. All data is lost
// when the process exits; it exists for tests and for deployments that
// only need the in-memory history ring.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]history.Record
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]history.Record)}
}

// SaveRecord persists one usage record.
func (s *MemoryStore) SaveRecord(_ context.Context, rec history.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("record %q already exists", rec.ID)
	}
	s.records[rec.ID] = rec
	return nil
}

// ListRecords returns matching records in timestamp order.
func (s *MemoryStore) ListRecords(_ context.Context, f history.Filter, limit int) ([]history.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	out := make([]history.Record, 0, len(s.records))
	for _, rec := range s.records {
		if f.UserID != "" && rec.UserID != f.UserID {
			continue
		}
		if !f.From.IsZero() && rec.Timestamp.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && rec.Timestamp.After(f.To) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Cleanup removes records older than the cutoff.
func (s *MemoryStore) Cleanup(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	deleted := 0
	for id, rec := range s.records {
		if rec.Timestamp.Before(olderThan) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close marks the store closed. Idempotent.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
