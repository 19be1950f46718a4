package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukit/notify/pkg/notify"
)

func seedNotification(t *testing.T, s *notify.MemoryStorage, userID string, createdAt time.Time, read bool) notify.Notification {
	t.Helper()
	n := notify.Notification{
		ID:             uuid.NewString(),
		OrganizationID: "org-1",
		UserID:         userID,
		EventID:        uuid.NewString(),
		Title:          "Something Happened",
		Level:          notify.LevelInfo,
		CreatedAt:      createdAt,
	}
	if read {
		readAt := createdAt
		n.ReadAt = &readAt
	}
	require.NoError(t, s.CreateNotification(context.Background(), n))
	return n
}

func TestMemoryStorageNotifications(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("get missing returns not found", func(t *testing.T) {
		t.Parallel()
		s := notify.NewMemoryStorage()
		_, err := s.GetNotification(ctx, uuid.NewString())
		assert.ErrorIs(t, err, notify.ErrNotificationNotFound)
	})

	t.Run("list is newest first and scoped to the user", func(t *testing.T) {
		t.Parallel()
		s := notify.NewMemoryStorage()
		base := time.Now()
		older := seedNotification(t, s, "u1", base.Add(-time.Hour), false)
		newer := seedNotification(t, s, "u1", base, false)
		seedNotification(t, s, "u2", base, false)

		list, err := s.ListNotifications(ctx, "u1", notify.ListOptions{})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, newer.ID, list[0].ID)
		assert.Equal(t, older.ID, list[1].ID)
	})

	t.Run("unread only with limit and offset", func(t *testing.T) {
		t.Parallel()
		s := notify.NewMemoryStorage()
		base := time.Now()
		seedNotification(t, s, "u1", base.Add(-2*time.Hour), true)
		n1 := seedNotification(t, s, "u1", base.Add(-time.Hour), false)
		n2 := seedNotification(t, s, "u1", base, false)

		list, err := s.ListNotifications(ctx, "u1", notify.ListOptions{UnreadOnly: true, Limit: 1})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, n2.ID, list[0].ID)

		list, err = s.ListNotifications(ctx, "u1", notify.ListOptions{UnreadOnly: true, Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, n1.ID, list[0].ID)
	})

	t.Run("mark read ignores other users", func(t *testing.T) {
		t.Parallel()
		s := notify.NewMemoryStorage()
		mine := seedNotification(t, s, "u1", time.Now(), false)
		theirs := seedNotification(t, s, "u2", time.Now(), false)

		require.NoError(t, s.MarkRead(ctx, "u1", mine.ID, theirs.ID))

		got, err := s.GetNotification(ctx, mine.ID)
		require.NoError(t, err)
		assert.True(t, got.IsRead())

		got, err = s.GetNotification(ctx, theirs.ID)
		require.NoError(t, err)
		assert.False(t, got.IsRead(), "one user cannot mark another user's notifications")
	})

	t.Run("mark all read and count unread", func(t *testing.T) {
		t.Parallel()
		s := notify.NewMemoryStorage()
		seedNotification(t, s, "u1", time.Now(), false)
		seedNotification(t, s, "u1", time.Now(), false)
		seedNotification(t, s, "u2", time.Now(), false)

		count, err := s.CountUnread(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		require.NoError(t, s.MarkAllRead(ctx, "u1"))

		count, err = s.CountUnread(ctx, "u1")
		require.NoError(t, err)
		assert.Zero(t, count)

		count, err = s.CountUnread(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("retention delete spares unread and recent rows", func(t *testing.T) {
		t.Parallel()
		s := notify.NewMemoryStorage()
		old := time.Now().Add(-100 * 24 * time.Hour)
		expired := seedNotification(t, s, "u1", old, true)
		oldUnread := seedNotification(t, s, "u1", old, false)
		recent := seedNotification(t, s, "u1", time.Now(), true)

		removed, err := s.DeleteReadNotificationsBefore(ctx, time.Now().Add(-90*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		_, err = s.GetNotification(ctx, expired.ID)
		assert.ErrorIs(t, err, notify.ErrNotificationNotFound)
		_, err = s.GetNotification(ctx, oldUnread.ID)
		assert.NoError(t, err, "unread rows never age out")
		_, err = s.GetNotification(ctx, recent.ID)
		assert.NoError(t, err)
	})
}

func TestMemoryStorageDeliveries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	newDelivery := func(t *testing.T, s *notify.MemoryStorage, eventType string) notify.Delivery {
		t.Helper()
		eventID := uuid.NewString()
		require.NoError(t, s.CreateEvent(ctx, notify.Event{
			ID:             eventID,
			OrganizationID: "org-1",
			Type:           eventType,
			EntityType:     "thing",
			EntityID:       "x",
			CreatedAt:      time.Now(),
		}))
		d := notify.Delivery{
			ID:             uuid.NewString(),
			OrganizationID: "org-1",
			UserID:         "u1",
			EventID:        eventID,
			Channel:        notify.ChannelEmail,
			Address:        "u1@school.test",
			Status:         notify.DeliveryStatusQueued,
			CreatedAt:      time.Now(),
		}
		require.NoError(t, s.CreateDelivery(ctx, d))
		return d
	}

	t.Run("sent is terminal", func(t *testing.T) {
		t.Parallel()
		s := notify.NewMemoryStorage()
		d := newDelivery(t, s, "invoice.overdue")

		require.NoError(t, s.MarkDeliverySent(ctx, d.ID, time.Now()))
		require.NoError(t, s.MarkDeliveryFailed(ctx, d.ID, "late failure"))

		got, err := s.GetDelivery(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, notify.DeliveryStatusSent, got.Status)
		assert.Nil(t, got.Error)
	})

	t.Run("failed is terminal", func(t *testing.T) {
		t.Parallel()
		s := notify.NewMemoryStorage()
		d := newDelivery(t, s, "invoice.overdue")

		require.NoError(t, s.MarkDeliveryFailed(ctx, d.ID, "boom"))
		require.NoError(t, s.MarkDeliverySent(ctx, d.ID, time.Now()))

		got, err := s.GetDelivery(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, notify.DeliveryStatusFailed, got.Status)
		assert.Nil(t, got.SentAt)
	})

	t.Run("list filters by status", func(t *testing.T) {
		t.Parallel()
		s := notify.NewMemoryStorage()
		queued := newDelivery(t, s, "invoice.overdue")
		sent := newDelivery(t, s, "invoice.overdue")
		require.NoError(t, s.MarkDeliverySent(ctx, sent.ID, time.Now()))

		list, err := s.ListDeliveries(ctx, notify.DeliveryFilter{UserID: "u1", Status: notify.DeliveryStatusQueued})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, queued.ID, list[0].ID)
	})

	t.Run("digest query filters by event type and status", func(t *testing.T) {
		t.Parallel()
		s := notify.NewMemoryStorage()
		digestible := newDelivery(t, s, "library.book_due_soon")
		newDelivery(t, s, "exam.marks_published")
		alreadySent := newDelivery(t, s, "library.book_due_soon")
		require.NoError(t, s.MarkDeliverySent(ctx, alreadySent.ID, time.Now()))

		list, err := s.QueuedDigestDeliveries(ctx, "org-1", "u1", []string{"library.book_due_soon"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, digestible.ID, list[0].ID)
	})
}
