package notify

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-memory Storage for tests and single-process
// deployments. All operations are safe for concurrent use.
type MemoryStorage struct {
	mu            sync.RWMutex
	events        map[string]*Event
	notifications map[string]*Notification
	deliveries    map[string]*Delivery
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		events:        make(map[string]*Event),
		notifications: make(map[string]*Notification),
		deliveries:    make(map[string]*Delivery),
	}
}

// CreateEvent implements Storage.
func (s *MemoryStorage) CreateEvent(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = &event
	return nil
}

// GetEvent implements Storage.
func (s *MemoryStorage) GetEvent(_ context.Context, id string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	clone := *event
	return &clone, nil
}

// CreateNotification implements Storage.
func (s *MemoryStorage) CreateNotification(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ID] = &n
	return nil
}

// GetNotification implements Storage.
func (s *MemoryStorage) GetNotification(_ context.Context, id string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	clone := *n
	return &clone, nil
}

// ListNotifications implements Storage.
func (s *MemoryStorage) ListNotifications(_ context.Context, userID string, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Notification
	for _, n := range s.notifications {
		if n.UserID != userID {
			continue
		}
		if opts.UnreadOnly && n.ReadAt != nil {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// CountUnread implements Storage.
func (s *MemoryStorage) CountUnread(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

// MarkRead implements Storage.
func (s *MemoryStorage) MarkRead(_ context.Context, userID string, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, id := range ids {
		n, ok := s.notifications[id]
		if !ok || n.UserID != userID || n.ReadAt != nil {
			continue
		}
		at := now
		n.ReadAt = &at
	}
	return nil
}

// MarkAllRead implements Storage.
func (s *MemoryStorage) MarkAllRead(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, n := range s.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			at := now
			n.ReadAt = &at
		}
	}
	return nil
}

// DeleteReadNotificationsBefore implements Storage.
func (s *MemoryStorage) DeleteReadNotificationsBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, n := range s.notifications {
		if n.ReadAt != nil && n.CreatedAt.Before(cutoff) {
			delete(s.notifications, id)
			removed++
		}
	}
	return removed, nil
}

// CreateDelivery implements Storage.
func (s *MemoryStorage) CreateDelivery(_ context.Context, d Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries[d.ID] = &d
	return nil
}

// GetDelivery implements Storage.
func (s *MemoryStorage) GetDelivery(_ context.Context, id string) (*Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.deliveries[id]
	if !ok {
		return nil, ErrDeliveryNotFound
	}
	clone := *d
	return &clone, nil
}

// ListDeliveries implements Storage.
func (s *MemoryStorage) ListDeliveries(_ context.Context, filter DeliveryFilter) ([]Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Delivery
	for _, d := range s.deliveries {
		if filter.OrganizationID != "" && d.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.UserID != "" && d.UserID != filter.UserID {
			continue
		}
		if filter.EventID != "" && d.EventID != filter.EventID {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// MarkDeliverySent implements Storage.
func (s *MemoryStorage) MarkDeliverySent(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deliveries[id]
	if !ok {
		return ErrDeliveryNotFound
	}
	if d.Status != DeliveryStatusQueued {
		return nil
	}
	sentAt := at
	d.Status = DeliveryStatusSent
	d.SentAt = &sentAt
	return nil
}

// MarkDeliveryFailed implements Storage.
func (s *MemoryStorage) MarkDeliveryFailed(_ context.Context, id, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deliveries[id]
	if !ok {
		return ErrDeliveryNotFound
	}
	if d.Status != DeliveryStatusQueued {
		return nil
	}
	d.Status = DeliveryStatusFailed
	d.Error = &errText
	return nil
}

// QueuedDigestDeliveries implements Storage.
func (s *MemoryStorage) QueuedDigestDeliveries(_ context.Context, orgID, userID string, eventTypes []string) ([]Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}

	var out []Delivery
	for _, d := range s.deliveries {
		if d.OrganizationID != orgID || d.UserID != userID {
			continue
		}
		if d.Status != DeliveryStatusQueued || d.Channel != ChannelEmail {
			continue
		}
		event, ok := s.events[d.EventID]
		if !ok || !types[event.Type] {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
