package notify

import (
	"time"
)

// Level represents notification severity.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Valid reports whether the level is one of the known severities.
func (l Level) Valid() bool {
	switch l {
	case LevelInfo, LevelWarning, LevelCritical:
		return true
	}
	return false
}

// Channel represents a delivery channel.
type Channel string

const (
	ChannelEmail Channel = "email"
)

// DeliveryStatus represents the delivery lifecycle. A delivery starts queued
// and transitions exactly once, to sent or failed. It never returns to queued.
type DeliveryStatus string

const (
	DeliveryStatusQueued DeliveryStatus = "queued"
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// Frequency represents how often a recipient wants email for an event type.
type Frequency string

const (
	FrequencyInstant     Frequency = "instant"
	FrequencyDailyDigest Frequency = "daily_digest"
)

// Event is the immutable record of a domain occurrence. Created once per
// occurrence at fan-out time, never mutated and never deleted by this engine.
type Event struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	Type           string         `json:"type"`
	ActorID        *string        `json:"actor_id,omitempty"`
	EntityType     string         `json:"entity_type"`
	EntityID       string         `json:"entity_id"`
	Payload        map[string]any `json:"payload,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Notification is a per-recipient in-app message derived from one Event.
// A notification created for an email-only recipient is pre-marked read so it
// never surfaces as an unread alert while still existing in history.
type Notification struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	UserID         string     `json:"user_id"`
	EventID        string     `json:"event_id"`
	Title          string     `json:"title"`
	Body           string     `json:"body"`
	URL            string     `json:"url,omitempty"`
	Level          Level      `json:"level"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// IsRead reports whether the notification has been read.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// Delivery is one per-recipient, per-channel send attempt and its outcome.
// NotificationID may be nil for digest flows that aggregate without a single
// backing notification.
type Delivery struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	NotificationID *string        `json:"notification_id,omitempty"`
	UserID         string         `json:"user_id"`
	EventID        string         `json:"event_id"`
	Channel        Channel        `json:"channel"`
	Address        string         `json:"address"`
	Status         DeliveryStatus `json:"status"`
	Error          *string        `json:"error,omitempty"`
	SentAt         *time.Time     `json:"sent_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Preference is the per (organization, user, event type) routing choice.
// Absence of a row implies defaults derived from RoutingConfig.
type Preference struct {
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	EventType      string    `json:"event_type"`
	InAppEnabled   bool      `json:"in_app_enabled"`
	EmailEnabled   bool      `json:"email_enabled"`
	Frequency      Frequency `json:"frequency"`
}

// Entity is the minimal shape the engine needs from a triggering domain
// object. Anything beyond it is probed through optional interfaces, so
// business entities only implement what applies to them.
type Entity interface {
	// EntityType returns a stable type key, e.g. "student_admission".
	EntityType() string

	// EntityID returns the entity's identifier.
	EntityID() string
}

// organizationHolder is probed for the organization the entity belongs to.
type organizationHolder interface {
	OrganizationID() string
}

// fieldAccessor is probed for named optional fields (assignee ids, display
// names). Implementations return false for fields that do not apply; that is
// never an error.
type fieldAccessor interface {
	Field(name string) (string, bool)
}

// Record is a ready-made Entity for callers that do not want to implement the
// interfaces on their domain types.
type Record struct {
	Type   string
	ID     string
	OrgID  string
	Fields map[string]string
}

func (r Record) EntityType() string { return r.Type }

func (r Record) EntityID() string { return r.ID }

func (r Record) OrganizationID() string { return r.OrgID }

func (r Record) Field(name string) (string, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// entityOrganization extracts the organization id from an entity, empty when
// the entity carries none.
func entityOrganization(entity Entity) string {
	if holder, ok := entity.(organizationHolder); ok {
		return holder.OrganizationID()
	}
	return ""
}

// entityField probes an optional named field, empty-and-false when absent.
func entityField(entity Entity, name string) (string, bool) {
	if accessor, ok := entity.(fieldAccessor); ok {
		return accessor.Field(name)
	}
	return "", false
}
