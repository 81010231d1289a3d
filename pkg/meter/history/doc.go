// Package history retains an append-only, bounded record of completed
// metered calls. Records are immutable once appended. When the ring
// exceeds its cap it drops the oldest half in one cut, which keeps the
// amortized cost of appends constant while preserving the relative order
// of the surviving records.
package history
