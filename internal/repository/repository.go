package repository

import (
	"context"
	"time"

	"pai/internal/audit"
)

// AuditRepository persists audit entries
type AuditRepository interface {
	// Log appends an entry; entries are never updated
	Log(ctx context.Context, e audit.Entry) error

	// Recent returns entries matching q, newest first
	Recent(ctx context.Context, q audit.Query) ([]audit.Entry, error)

	// Count returns the number of stored entries
	Count(ctx context.Context) (int, error)

	// Prune deletes entries older than before and returns how many went
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Close releases resources
	Close() error
}
