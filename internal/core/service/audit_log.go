package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/botforge/storefront-admin/internal/core/domain"
	"github.com/botforge/storefront-admin/internal/core/ports"
	"github.com/botforge/storefront-admin/internal/pkg/metrics"
)

// AuditLog appends to and reads from a capacity-bounded audit store.
type AuditLog struct {
	store    ports.AuditStore
	capacity int
	now      func() time.Time
}

// NewAuditLog returns an AuditLog keeping the newest capacity entries.
// If capacity <= 0, domain.DefaultAuditCapacity is used.
func NewAuditLog(store ports.AuditStore, capacity int) *AuditLog {
	if capacity <= 0 {
		capacity = domain.DefaultAuditCapacity
	}
	return &AuditLog{
		store:    store,
		capacity: capacity,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Record appends an entry stamped with the current time.
func (a *AuditLog) Record(ctx context.Context, action, performedBy string) (domain.AuditEntry, error) {
	if performedBy == "" {
		performedBy = domain.SystemActor
	}
	entry := domain.AuditEntry{
		ID:          uuid.NewString(),
		Action:      action,
		PerformedBy: performedBy,
		Timestamp:   a.now(),
	}
	if err := a.store.Append(ctx, entry, a.capacity); err != nil {
		metrics.AuditEntriesTotal.WithLabelValues("error").Inc()
		return domain.AuditEntry{}, fmt.Errorf("append audit entry: %w", err)
	}
	metrics.AuditEntriesTotal.WithLabelValues("ok").Inc()
	return entry, nil
}

// Recent returns the retained entries, newest first.
func (a *AuditLog) Recent(ctx context.Context) ([]domain.AuditEntry, error) {
	entries, err := a.store.Recent(ctx, a.capacity)
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	if len(entries) > a.capacity {
		entries = entries[:a.capacity]
	}
	return entries, nil
}
