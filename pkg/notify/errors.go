package notify

import "errors"

var (
	// ErrEventNotFound is returned when the requested event does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrNotificationNotFound is returned when the requested notification does not exist.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrDeliveryNotFound is returned when the requested delivery does not exist.
	ErrDeliveryNotFound = errors.New("delivery not found")

	// ErrStorageNil is returned when a constructor receives a nil storage.
	ErrStorageNil = errors.New("storage cannot be nil")
)
