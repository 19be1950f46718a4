package directory

import (
	"context"
	"slices"
	"sync"
)

// AdminRole is the role name treated as organization administrator.
const AdminRole = "admin"

// MemoryDirectory is an in-memory Directory implementation.
// Suitable for development and testing.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]User                // userID -> user
	perms map[string]map[string][]string // orgID -> permission -> userIDs
}

// NewMemoryDirectory creates an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		users: make(map[string]User),
		perms: make(map[string]map[string][]string),
	}
}

// AddUser registers a user.
func (d *MemoryDirectory) AddUser(u User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

// Grant gives a user a permission within their organization.
func (d *MemoryDirectory) Grant(orgID, userID, permission string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.perms[orgID] == nil {
		d.perms[orgID] = make(map[string][]string)
	}
	if !slices.Contains(d.perms[orgID][permission], userID) {
		d.perms[orgID][permission] = append(d.perms[orgID][permission], userID)
	}
}

func (d *MemoryDirectory) UsersWithPermission(ctx context.Context, orgID, permission string) ([]User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var users []User
	for _, id := range d.perms[orgID][permission] {
		u, ok := d.users[id]
		if !ok || !u.Active {
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

func (d *MemoryDirectory) AdministratorsOf(ctx context.Context, orgID string) ([]User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var admins []User
	for _, u := range d.users {
		if u.OrganizationID == orgID && u.Role == AdminRole && u.Active {
			admins = append(admins, u)
		}
	}
	return admins, nil
}

func (d *MemoryDirectory) Get(ctx context.Context, userID string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	// Return a copy to prevent external mutation of stored data
	user := u
	return &user, nil
}
