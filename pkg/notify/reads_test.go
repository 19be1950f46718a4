package notify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukit/notify/pkg/notify"
)

func TestOrchestratorReadState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newEngineFixture(t)
	actor := f.addUser("u1", "u1@school.test")
	f.addUser("u2", "u2@school.test")
	f.dir.Grant("org-1", "u2", "students.manage")

	student := notify.Record{Type: "student", ID: "s-1", OrgID: "org-1", Fields: map[string]string{"full_name": "Grace Hopper"}}
	outcome := f.orc.Notify(ctx, "student.enrolled", student, &actor, notify.Payload{})
	require.Equal(t, notify.OutcomeDispatched, outcome.Kind)

	count, err := f.orc.CountUnread(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	list, err := f.orc.List(ctx, "u2", notify.ListOptions{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Student Enrolled: Grace Hopper", list[0].Body)

	require.NoError(t, f.orc.MarkRead(ctx, "u2", list[0].ID))
	count, err = f.orc.CountUnread(ctx, "u2")
	require.NoError(t, err)
	assert.Zero(t, count)

	outcome = f.orc.Notify(ctx, "student.promoted", student, &actor, notify.Payload{})
	require.Equal(t, notify.OutcomeDispatched, outcome.Kind)
	require.NoError(t, f.orc.MarkAllRead(ctx, "u2"))
	count, err = f.orc.CountUnread(ctx, "u2")
	require.NoError(t, err)
	assert.Zero(t, count)

	deliveries, err := f.orc.ListDeliveries(ctx, notify.DeliveryFilter{OrganizationID: "org-1"})
	require.NoError(t, err)
	assert.Empty(t, deliveries, "student events are not email eligible by default")
}
