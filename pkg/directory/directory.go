package directory

import "context"

// User is an organization member as seen by the notification engine.
// Email may be empty: not every account has a resolvable address and the
// routing layer treats that as "in-app only".
type User struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	Role           string `json:"role"`
	Active         bool   `json:"active"`
}

// HasEmail reports whether the user has a resolvable email address.
func (u User) HasEmail() bool {
	return u.Email != ""
}

// Directory exposes the organization role/permission store.
// The notification engine consumes it read-only; ownership stays with the
// surrounding identity and access control system.
type Directory interface {
	// UsersWithPermission returns all active users of the organization
	// holding the named permission.
	UsersWithPermission(ctx context.Context, orgID, permission string) ([]User, error)

	// AdministratorsOf returns all active administrators of the organization.
	AdministratorsOf(ctx context.Context, orgID string) ([]User, error)

	// Get returns a single user by id.
	Get(ctx context.Context, userID string) (*User, error)
}
