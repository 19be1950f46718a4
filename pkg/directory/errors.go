package directory

import "errors"

var (
	// ErrUserNotFound is returned when a user id resolves to no user.
	ErrUserNotFound = errors.New("user not found")
)
