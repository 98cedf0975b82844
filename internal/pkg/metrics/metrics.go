// Package metrics defines and registers the custom Prometheus metrics of
// the storefront admin core. It is the single source of truth for metric
// names, labels, and help strings.
//
// All metrics register with the default Prometheus registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

// ── Session metrics ───────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "ok", "invalid_credentials", "banned" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// SessionChangesTotal counts change notifications delivered to subscribers.
// Label:
//   - reason: "login", "logout", "updated", "banned", "deleted", "expired"
var SessionChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_changes_total",
		Help:      "Total number of session change events, by reason.",
	},
	[]string{"reason"},
)

// SessionChangesDroppedTotal counts changes discarded because the owning
// dispatcher worker was saturated.
var SessionChangesDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_changes_dropped_total",
		Help:      "Total number of session change events dropped on a full worker queue.",
	},
)

// ActiveSessions tracks sessions bound in this process.
var ActiveSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Number of sessions currently bound in memory.",
	},
)

// ── Mutation metrics ──────────────────────────────────────────────────────────

// MutationsTotal counts gateway operations.
// Labels:
//   - operation: e.g. "change_role", "ban", "delete"
//   - result: "ok", "forbidden", "not_found", "conflict", "error"
var MutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutations_total",
		Help:      "Total number of identity mutations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// PolicyDenialsTotal counts authorization denials.
// Label:
//   - action: the denied action (e.g. "change_role", "list_directory")
var PolicyDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "policy_denials_total",
		Help:      "Total number of authorization policy denials, by action.",
	},
	[]string{"action"},
)

// ── Directory metrics ─────────────────────────────────────────────────────────

// DirectoryLookupsTotal counts ListAll calls that passed the policy gate.
// Label:
//   - result: "hit" (served from snapshot) or "miss" (fetched)
var DirectoryLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "directory_lookups_total",
		Help:      "Total number of directory lookups, labelled by cache result (hit/miss).",
	},
	[]string{"result"},
)

// DirectoryFetchDuration measures a full identity listing from the store.
var DirectoryFetchDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "directory_fetch_duration_seconds",
		Help:      "Duration of a directory refresh from the identity store.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditEntriesTotal counts audit appends.
// Label:
//   - result: "ok" or "error"
var AuditEntriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_entries_total",
		Help:      "Total number of audit log appends, by result.",
	},
	[]string{"result"},
)
