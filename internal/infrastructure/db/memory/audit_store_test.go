package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/botforge/storefront-admin/internal/core/domain"
)

func entry(i int) domain.AuditEntry {
	return domain.AuditEntry{ID: fmt.Sprintf("e%d", i), Action: fmt.Sprintf("action %d", i), PerformedBy: "root"}
}

func TestAuditStore_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewAuditStore()
	for i := 1; i <= 3; i++ {
		if err := s.Append(ctx, entry(i), 100); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := s.Recent(ctx, 100)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 || got[0].ID != "e3" || got[2].ID != "e1" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestAuditStore_EvictsOldestBeyondCapacity(t *testing.T) {
	ctx := context.Background()
	s := NewAuditStore()
	for i := 1; i <= 101; i++ {
		_ = s.Append(ctx, entry(i), 100)
	}

	got, _ := s.Recent(ctx, 1000)
	if len(got) != 100 {
		t.Fatalf("expected 100 entries, got %d", len(got))
	}
	if got[0].ID != "e101" || got[99].ID != "e2" {
		t.Fatalf("unexpected window: newest %s oldest %s", got[0].ID, got[99].ID)
	}
	for _, e := range got {
		if e.ID == "e1" {
			t.Fatal("oldest entry still retrievable")
		}
	}
}

func TestAuditStore_Limit(t *testing.T) {
	ctx := context.Background()
	s := NewAuditStore()
	for i := 1; i <= 5; i++ {
		_ = s.Append(ctx, entry(i), 10)
	}

	got, _ := s.Recent(ctx, 2)
	if len(got) != 2 || got[0].ID != "e5" || got[1].ID != "e4" {
		t.Fatalf("unexpected entries: %+v", got)
	}
	if empty, _ := s.Recent(ctx, 0); len(empty) != 0 {
		t.Fatalf("expected no entries for limit 0, got %d", len(empty))
	}
}

func TestAuditStore_ShrinkKeepsNewest(t *testing.T) {
	ctx := context.Background()
	s := NewAuditStore()
	for i := 1; i <= 6; i++ {
		_ = s.Append(ctx, entry(i), 5)
	}
	_ = s.Append(ctx, entry(7), 3)

	got, _ := s.Recent(ctx, 10)
	if len(got) != 3 || got[0].ID != "e7" || got[1].ID != "e6" || got[2].ID != "e5" {
		t.Fatalf("unexpected entries after shrink: %+v", got)
	}
}
