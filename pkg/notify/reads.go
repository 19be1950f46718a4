package notify

import "context"

// List returns a user's notifications, newest first.
func (o *Orchestrator) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	return o.storage.ListNotifications(ctx, userID, opts)
}

// CountUnread returns the user's unread notification count, for badge
// rendering.
func (o *Orchestrator) CountUnread(ctx context.Context, userID string) (int, error) {
	return o.storage.CountUnread(ctx, userID)
}

// MarkRead marks the given notifications read for the user.
func (o *Orchestrator) MarkRead(ctx context.Context, userID string, ids ...string) error {
	return o.storage.MarkRead(ctx, userID, ids...)
}

// MarkAllRead marks all of the user's notifications read.
func (o *Orchestrator) MarkAllRead(ctx context.Context, userID string) error {
	return o.storage.MarkAllRead(ctx, userID)
}

// ListDeliveries returns delivery records matching the filter, for admin
// inspection of the outbound email log.
func (o *Orchestrator) ListDeliveries(ctx context.Context, filter DeliveryFilter) ([]Delivery, error) {
	return o.storage.ListDeliveries(ctx, filter)
}
