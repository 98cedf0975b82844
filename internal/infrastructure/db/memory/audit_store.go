// Package memory holds process-local store implementations, used when no
// Redis is configured for the audit trail.
package memory

import (
	"context"
	"sync"

	"github.com/botforge/storefront-admin/internal/core/domain"
)

// AuditStore is a fixed-size ring buffer of audit entries. Entries are lost
// on restart.
type AuditStore struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	head    int // index of the oldest entry
	size    int
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Append adds entry, overwriting the oldest one once capacity is reached.
// A capacity change resizes the buffer and keeps the newest entries.
func (s *AuditStore) Append(_ context.Context, entry domain.AuditEntry, capacity int) error {
	if capacity <= 0 {
		capacity = domain.DefaultAuditCapacity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) != capacity {
		s.resize(capacity)
	}
	if s.size < capacity {
		s.entries[(s.head+s.size)%capacity] = entry
		s.size++
		return nil
	}
	s.entries[s.head] = entry
	s.head = (s.head + 1) % capacity
	return nil
}

// Recent returns at most limit entries, newest first.
func (s *AuditStore) Recent(_ context.Context, limit int) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.size
	if limit < n {
		n = limit
	}
	if n <= 0 {
		return []domain.AuditEntry{}, nil
	}

	out := make([]domain.AuditEntry, 0, n)
	for i := 0; i < n; i++ {
		idx := (s.head + s.size - 1 - i) % len(s.entries)
		out = append(out, s.entries[idx])
	}
	return out, nil
}

// resize must be called with mu held.
func (s *AuditStore) resize(capacity int) {
	keep := s.size
	if keep > capacity {
		keep = capacity
	}
	next := make([]domain.AuditEntry, capacity)
	for i := 0; i < keep; i++ {
		// copy oldest-to-newest of the newest keep entries
		idx := (s.head + s.size - keep + i) % len(s.entries)
		next[i] = s.entries[idx]
	}
	s.entries = next
	s.head = 0
	s.size = keep
}
