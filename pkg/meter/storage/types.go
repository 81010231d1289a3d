package storage

import (
	"context"
	"errors"
	"time"

	"tollgate-hq/tollgate/pkg/meter/history"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: store is closed")

// Store persists usage records. Implementations must be thread-safe.
type Store interface {
	// SaveRecord persists one usage record. Records are append-only;
	// saving the same ID twice is an error.
	SaveRecord(ctx context.Context, rec history.Record) error

	// ListRecords returns records matching the filter in timestamp
	// order, up to limit (0 means no limit).
	ListRecords(ctx context.Context, f history.Filter, limit int) ([]history.Record, error)

	// Cleanup removes records older than the cutoff and returns how
	// many were deleted.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases backend resources. The store must not be used
	// afterwards.
	Close() error
}
