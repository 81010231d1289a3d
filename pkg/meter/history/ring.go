package history

import (
	"sync"
	"time"
)

// DefaultMaxRecords is the default ring capacity. Exceeding it trims the
// ring down to half this value.
const DefaultMaxRecords = 10000

// Record is one completed metered call. Records are value types and never
// mutated after creation.
type Record struct {
	ID           string
	Timestamp    time.Time
	UserID       string
	Operation    string
	ProviderID   string
	Model        string
	InputTokens  int
	OutputTokens int
	Cost         float64
	Success      bool
	Metadata     map[string]string
}

// TotalTokens returns the combined token count for the record.
func (r Record) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// Filter selects records for queries. Zero values match everything.
type Filter struct {
	// UserID restricts to one user when non-empty.
	UserID string

	// From is the inclusive lower bound on Timestamp when non-zero.
	From time.Time

	// To is the inclusive upper bound on Timestamp when non-zero.
	To time.Time
}

func (f Filter) matches(r Record) bool {
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if !f.From.IsZero() && r.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.Timestamp.After(f.To) {
		return false
	}
	return true
}

// Ring is the bounded in-memory usage history.
type Ring struct {
	mu      sync.RWMutex
	max     int
	records []Record
}

// NewRing creates a history ring with the given cap. A cap below 2 uses
// DefaultMaxRecords.
func NewRing(maxRecords int) *Ring {
	if maxRecords < 2 {
		maxRecords = DefaultMaxRecords
	}
	return &Ring{max: maxRecords}
}

// Append adds a record, trimming the oldest half once the cap is exceeded.
func (r *Ring) Append(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, rec)
	if len(r.records) > r.max {
		keep := r.max / 2
		// Copy into a fresh slice so the trimmed backing array is freed.
		trimmed := make([]Record, keep)
		copy(trimmed, r.records[len(r.records)-keep:])
		r.records = trimmed
	}
}

// Len returns the number of retained records.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Snapshot returns copies of the records matching the filter, oldest first.
func (r *Ring) Snapshot(f Filter) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		if f.matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Recent returns up to n of the newest records, oldest first, optionally
// restricted to one user.
func (r *Ring) Recent(n int, userID string) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n <= 0 {
		return nil
	}
	out := make([]Record, 0, n)
	for i := len(r.records) - 1; i >= 0 && len(out) < n; i-- {
		if userID != "" && r.records[i].UserID != userID {
			continue
		}
		out = append(out, r.records[i])
	}
	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// TrimBefore drops records older than the cutoff and returns how many
// were removed. Used by retention sweeps; safe alongside live appends.
func (r *Ring) TrimBefore(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Records are appended in time order, so find the first survivor.
	idx := 0
	for idx < len(r.records) && r.records[idx].Timestamp.Before(cutoff) {
		idx++
	}
	if idx == 0 {
		return 0
	}
	trimmed := make([]Record, len(r.records)-idx)
	copy(trimmed, r.records[idx:])
	r.records = trimmed
	return idx
}
