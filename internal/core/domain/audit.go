package domain

import "time"

// DefaultAuditCapacity is how many entries the audit log retains.
const DefaultAuditCapacity = 100

// AuditEntry records one privileged mutation. PerformedBy is a username,
// not a reference; the actor may no longer exist.
type AuditEntry struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	PerformedBy string    `json:"performed_by"`
	Timestamp   time.Time `json:"timestamp"`
}
