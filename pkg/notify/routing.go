package notify

import "strings"

// RoutingConfig carries the per-deployment routing policy: which event types
// are severe, which may reach email at all, and which default to a daily
// digest instead of an instant send. It is injected into the orchestrator and
// the delivery worker rather than read from package-level state, so two
// engines with different policies can coexist in one process.
type RoutingConfig struct {
	// Severity maps event types to a level. Unlisted types are LevelInfo.
	// A key may be a full type ("invoice.overdue") or a "prefix.*" pattern;
	// exact matches win over patterns.
	Severity map[string]Level

	// EmailEligible lists event types allowed to produce email deliveries.
	// A recipient preference can narrow this but never widen it. Supports
	// the same exact/pattern keys as Severity.
	EmailEligible map[string]bool

	// Digest lists event types whose email defaults to the daily digest when
	// the recipient has no explicit frequency preference. Exact keys only;
	// digest batching is deliberate per type, never pattern-wide.
	Digest map[string]bool
}

// LevelFor returns the severity for an event type, LevelInfo when unlisted.
func (c RoutingConfig) LevelFor(eventType string) Level {
	if lvl, ok := c.Severity[eventType]; ok {
		return lvl
	}
	for _, key := range patternKeys(eventType) {
		if lvl, ok := c.Severity[key]; ok {
			return lvl
		}
	}
	return LevelInfo
}

// AllowsEmail reports whether the event type may produce email deliveries.
func (c RoutingConfig) AllowsEmail(eventType string) bool {
	if c.EmailEligible[eventType] {
		return true
	}
	for _, key := range patternKeys(eventType) {
		if c.EmailEligible[key] {
			return true
		}
	}
	return false
}

// DefaultFrequency returns the email frequency for a recipient without an
// explicit preference row.
func (c RoutingConfig) DefaultFrequency(eventType string) Frequency {
	if c.Digest[eventType] {
		return FrequencyDailyDigest
	}
	return FrequencyInstant
}

// patternKeys returns "prefix.*" keys for every dotted prefix of the event
// type, longest first, so "fee.assignment.overdue" tries
// "fee.assignment.*" before "fee.*".
func patternKeys(eventType string) []string {
	var keys []string
	for prefix := eventType; ; {
		i := strings.LastIndex(prefix, ".")
		if i <= 0 {
			return keys
		}
		prefix = prefix[:i]
		keys = append(keys, prefix+".*")
	}
}

// DefaultRoutingConfig returns the routing policy for the standard school
// event catalog. Deployments with custom events supply their own config or
// extend this one before handing it to NewOrchestrator.
func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{
		Severity: map[string]Level{
			"admission.rejected":         LevelWarning,
			"invoice.overdue":            LevelWarning,
			"fee.assignment.overdue":     LevelWarning,
			"library.book_overdue":       LevelWarning,
			"finance.account.low":        LevelWarning,
			"asset.maintenance_due":      LevelWarning,
			"student.deactivated":        LevelWarning,
			"security.*":                 LevelCritical,
			"subscription.limit_reached": LevelCritical,
			"subscription.expired":       LevelCritical,
			"system.*":                   LevelCritical,
		},
		EmailEligible: map[string]bool{
			"admission.approved":     true,
			"admission.rejected":     true,
			"invoice.issued":         true,
			"invoice.overdue":        true,
			"payment.received":       true,
			"fee.assignment.overdue": true,
			"library.book_overdue":   true,
			"library.book_due_soon":  true,
			"exam.marks_published":   true,
			"doc.assigned":           true,
			"asset.maintenance_due":  true,
			"security.*":             true,
			"subscription.*":         true,
			"system.*":               true,
		},
		Digest: map[string]bool{
			"library.book_due_soon": true,
			"asset.maintenance_due": true,
			"invoice.overdue":       true,
		},
	}
}
