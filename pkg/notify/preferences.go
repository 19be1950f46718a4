package notify

import (
	"context"
	"sync"
)

// PreferenceStore resolves stored notification preferences. Implementations
// return only the rows that exist; the orchestrator fills the gaps with
// defaults, so a store never has to synthesize rows.
type PreferenceStore interface {
	// BulkGet returns stored preferences for the given users and event type,
	// keyed by user id. Users without a stored row are simply absent from
	// the result.
	BulkGet(ctx context.Context, orgID, eventType string, userIDs []string) (map[string]Preference, error)
}

// effectivePreference merges a stored preference (when present) with the
// defaults for the event type: in-app on, email on, frequency from the
// routing config.
func effectivePreference(stored map[string]Preference, cfg RoutingConfig, orgID, userID, eventType string) Preference {
	if pref, ok := stored[userID]; ok {
		if pref.Frequency == "" {
			pref.Frequency = cfg.DefaultFrequency(eventType)
		}
		return pref
	}
	return Preference{
		OrganizationID: orgID,
		UserID:         userID,
		EventType:      eventType,
		InAppEnabled:   true,
		EmailEnabled:   true,
		Frequency:      cfg.DefaultFrequency(eventType),
	}
}

// MemoryPreferenceStore is an in-memory PreferenceStore for tests and
// single-process deployments.
type MemoryPreferenceStore struct {
	mu    sync.RWMutex
	prefs map[string]Preference
}

// NewMemoryPreferenceStore creates an empty in-memory preference store.
func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{prefs: make(map[string]Preference)}
}

// Set stores a preference row, replacing any previous row for the same
// (organization, user, event type) key.
func (s *MemoryPreferenceStore) Set(pref Preference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[prefKey(pref.OrganizationID, pref.UserID, pref.EventType)] = pref
}

// BulkGet implements PreferenceStore.
func (s *MemoryPreferenceStore) BulkGet(_ context.Context, orgID, eventType string, userIDs []string) (map[string]Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Preference)
	for _, userID := range userIDs {
		if pref, ok := s.prefs[prefKey(orgID, userID, eventType)]; ok {
			out[userID] = pref
		}
	}
	return out, nil
}

func prefKey(orgID, userID, eventType string) string {
	return orgID + "/" + userID + "/" + eventType
}
