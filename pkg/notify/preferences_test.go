package notify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukit/notify/pkg/notify"
)

func TestMemoryPreferenceStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("returns only stored rows", func(t *testing.T) {
		t.Parallel()
		s := notify.NewMemoryPreferenceStore()
		s.Set(notify.Preference{
			OrganizationID: "org-1",
			UserID:         "u1",
			EventType:      "invoice.overdue",
			InAppEnabled:   true,
			EmailEnabled:   false,
			Frequency:      notify.FrequencyInstant,
		})

		got, err := s.BulkGet(ctx, "org-1", "invoice.overdue", []string{"u1", "u2"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.False(t, got["u1"].EmailEnabled)
		_, ok := got["u2"]
		assert.False(t, ok, "absence of a row is the caller's signal to apply defaults")
	})

	t.Run("rows are scoped by organization and event type", func(t *testing.T) {
		t.Parallel()
		s := notify.NewMemoryPreferenceStore()
		s.Set(notify.Preference{OrganizationID: "org-1", UserID: "u1", EventType: "invoice.overdue"})

		got, err := s.BulkGet(ctx, "org-2", "invoice.overdue", []string{"u1"})
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = s.BulkGet(ctx, "org-1", "invoice.issued", []string{"u1"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("set replaces earlier row", func(t *testing.T) {
		t.Parallel()
		s := notify.NewMemoryPreferenceStore()
		s.Set(notify.Preference{OrganizationID: "org-1", UserID: "u1", EventType: "invoice.overdue", EmailEnabled: true})
		s.Set(notify.Preference{OrganizationID: "org-1", UserID: "u1", EventType: "invoice.overdue", EmailEnabled: false})

		got, err := s.BulkGet(ctx, "org-1", "invoice.overdue", []string{"u1"})
		require.NoError(t, err)
		assert.False(t, got["u1"].EmailEnabled)
	})
}
