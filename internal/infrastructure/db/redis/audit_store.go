package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/botforge/storefront-admin/internal/core/domain"
)

const auditKey = "audit:entries"

// AuditStore keeps the audit trail in a capped Redis list, newest at the head.
type AuditStore struct {
	client *redis.Client
}

func NewAuditStore(client *redis.Client) *AuditStore {
	return &AuditStore{client: client}
}

// Append pushes entry and trims the list to capacity in one transaction.
func (s *AuditStore) Append(ctx context.Context, entry domain.AuditEntry, capacity int) error {
	if capacity <= 0 {
		capacity = domain.DefaultAuditCapacity
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, auditKey, data)
		pipe.LTrim(ctx, auditKey, 0, int64(capacity-1))
		return nil
	})
	if err != nil {
		return unavailable("append audit entry", err)
	}
	return nil
}

// Recent returns at most limit entries, newest first.
func (s *AuditStore) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		return []domain.AuditEntry{}, nil
	}
	raw, err := s.client.LRange(ctx, auditKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, unavailable("read audit log", err)
	}

	entries := make([]domain.AuditEntry, 0, len(raw))
	for _, item := range raw {
		var entry domain.AuditEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("decode audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
