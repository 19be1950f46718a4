package directory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukit/notify/pkg/directory"
)

func TestMemoryDirectory_UsersWithPermission(t *testing.T) {
	dir := directory.NewMemoryDirectory()
	ctx := context.Background()

	dir.AddUser(directory.User{ID: "u1", OrganizationID: "o1", Role: "accountant", Active: true})
	dir.AddUser(directory.User{ID: "u2", OrganizationID: "o1", Role: "accountant", Active: false})
	dir.AddUser(directory.User{ID: "u3", OrganizationID: "o1", Role: "teacher", Active: true})

	dir.Grant("o1", "u1", "finance.view")
	dir.Grant("o1", "u2", "finance.view")

	users, err := dir.UsersWithPermission(ctx, "o1", "finance.view")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u1", users[0].ID)

	none, err := dir.UsersWithPermission(ctx, "o1", "library.manage")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryDirectory_Grant_Deduplicates(t *testing.T) {
	dir := directory.NewMemoryDirectory()
	dir.AddUser(directory.User{ID: "u1", OrganizationID: "o1", Active: true})

	dir.Grant("o1", "u1", "exams.manage")
	dir.Grant("o1", "u1", "exams.manage")

	users, err := dir.UsersWithPermission(context.Background(), "o1", "exams.manage")
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestMemoryDirectory_AdministratorsOf(t *testing.T) {
	dir := directory.NewMemoryDirectory()
	ctx := context.Background()

	dir.AddUser(directory.User{ID: "a1", OrganizationID: "o1", Role: directory.AdminRole, Active: true})
	dir.AddUser(directory.User{ID: "a2", OrganizationID: "o1", Role: directory.AdminRole, Active: false})
	dir.AddUser(directory.User{ID: "a3", OrganizationID: "o2", Role: directory.AdminRole, Active: true})
	dir.AddUser(directory.User{ID: "u1", OrganizationID: "o1", Role: "teacher", Active: true})

	admins, err := dir.AdministratorsOf(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "a1", admins[0].ID)
}

func TestMemoryDirectory_Get(t *testing.T) {
	dir := directory.NewMemoryDirectory()
	dir.AddUser(directory.User{ID: "u1", OrganizationID: "o1", Email: "u1@x", Active: true})

	u, err := dir.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1@x", u.Email)
	assert.True(t, u.HasEmail())

	_, err = dir.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, directory.ErrUserNotFound)
}
