package ports

import (
	"context"

	"github.com/botforge/storefront-admin/internal/core/domain"
)

// AuditStore holds an ordered, length-capped sequence of audit entries.
type AuditStore interface {
	// Append adds entry and evicts from the oldest end beyond capacity.
	Append(ctx context.Context, entry domain.AuditEntry, capacity int) error
	// Recent returns at most limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}
