package notify

import (
	"context"
	"time"
)

// ListOptions bounds notification listing.
type ListOptions struct {
	// UnreadOnly restricts the result to unread notifications.
	UnreadOnly bool

	// Limit caps the number of rows returned; zero means no cap.
	Limit int

	// Offset skips that many rows, for pagination.
	Offset int
}

// DeliveryFilter narrows delivery listing. Zero-value fields do not filter.
type DeliveryFilter struct {
	OrganizationID string
	UserID         string
	EventID        string
	Status         DeliveryStatus
	Limit          int
}

// Storage persists events, notifications and deliveries. All writes must be
// durable before the caller enqueues any job referencing the written rows; a
// worker may otherwise claim a job whose delivery row it cannot see yet.
type Storage interface {
	// CreateEvent persists an immutable event record.
	CreateEvent(ctx context.Context, event Event) error

	// GetEvent returns an event by id, ErrEventNotFound when absent.
	GetEvent(ctx context.Context, id string) (*Event, error)

	// CreateNotification persists a per-recipient notification.
	CreateNotification(ctx context.Context, n Notification) error

	// GetNotification returns a notification by id, ErrNotificationNotFound
	// when absent.
	GetNotification(ctx context.Context, id string) (*Notification, error)

	// ListNotifications returns a user's notifications, newest first.
	ListNotifications(ctx context.Context, userID string, opts ListOptions) ([]Notification, error)

	// CountUnread returns the number of unread notifications for a user.
	CountUnread(ctx context.Context, userID string) (int, error)

	// MarkRead marks the given notifications read for the user. Rows that
	// are already read or belong to another user are left untouched.
	MarkRead(ctx context.Context, userID string, ids ...string) error

	// MarkAllRead marks every unread notification of the user read.
	MarkAllRead(ctx context.Context, userID string) error

	// DeleteReadNotificationsBefore removes read notifications created
	// before the cutoff and returns how many were removed. Unread rows are
	// never touched regardless of age.
	DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int, error)

	// CreateDelivery persists a delivery in queued state.
	CreateDelivery(ctx context.Context, d Delivery) error

	// GetDelivery returns a delivery by id, ErrDeliveryNotFound when absent.
	GetDelivery(ctx context.Context, id string) (*Delivery, error)

	// ListDeliveries returns deliveries matching the filter, newest first.
	ListDeliveries(ctx context.Context, filter DeliveryFilter) ([]Delivery, error)

	// MarkDeliverySent transitions a queued delivery to sent. A delivery
	// already sent or failed is left as is.
	MarkDeliverySent(ctx context.Context, id string, at time.Time) error

	// MarkDeliveryFailed transitions a queued delivery to failed, recording
	// the error text. A delivery already sent or failed is left as is.
	MarkDeliveryFailed(ctx context.Context, id, errText string) error

	// QueuedDigestDeliveries returns the user's queued email deliveries
	// whose underlying event type is in the given set, oldest first.
	QueuedDigestDeliveries(ctx context.Context, orgID, userID string, eventTypes []string) ([]Delivery, error)
}
