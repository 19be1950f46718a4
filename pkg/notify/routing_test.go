package notify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edukit/notify/pkg/notify"
)

func TestRoutingConfig(t *testing.T) {
	t.Parallel()
	cfg := notify.DefaultRoutingConfig()

	t.Run("level for", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			eventType string
			want      notify.Level
		}{
			{"admission.approved", notify.LevelInfo},
			{"admission.rejected", notify.LevelWarning},
			{"invoice.overdue", notify.LevelWarning},
			{"security.password_changed", notify.LevelCritical},
			{"security.new_device_login", notify.LevelCritical},
			{"subscription.limit_reached", notify.LevelCritical},
			{"system.maintenance", notify.LevelCritical},
			{"library.book_added", notify.LevelInfo},
			{"completely.unknown", notify.LevelInfo},
		}
		for _, tt := range tests {
			assert.Equal(t, tt.want, cfg.LevelFor(tt.eventType), tt.eventType)
		}
	})

	t.Run("email eligibility", func(t *testing.T) {
		t.Parallel()
		assert.True(t, cfg.AllowsEmail("invoice.overdue"))
		assert.True(t, cfg.AllowsEmail("security.password_changed"), "pattern entry covers the whole prefix")
		assert.True(t, cfg.AllowsEmail("subscription.renewed"))
		assert.False(t, cfg.AllowsEmail("library.book_added"))
		assert.False(t, cfg.AllowsEmail("attendance.marked"))
	})

	t.Run("default frequency", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, notify.FrequencyDailyDigest, cfg.DefaultFrequency("library.book_due_soon"))
		assert.Equal(t, notify.FrequencyDailyDigest, cfg.DefaultFrequency("invoice.overdue"))
		assert.Equal(t, notify.FrequencyInstant, cfg.DefaultFrequency("security.password_changed"))
		assert.Equal(t, notify.FrequencyInstant, cfg.DefaultFrequency("doc.assigned"))
	})
}

func TestHumanizeEventType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"admission.approved", "Admission Approved"},
		{"doc.assigned", "Doc Assigned"},
		{"library.book_due_soon", "Library Book Due Soon"},
		{"fee.assignment.overdue", "Fee Assignment Overdue"},
		{"security.new_device_login", "Security New Device Login"},
		{"single", "Single"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, notify.HumanizeEventType(tt.in), tt.in)
	}
}

func TestLevelValid(t *testing.T) {
	t.Parallel()
	assert.True(t, notify.LevelInfo.Valid())
	assert.True(t, notify.LevelWarning.Valid())
	assert.True(t, notify.LevelCritical.Valid())
	assert.False(t, notify.Level("").Valid())
	assert.False(t, notify.Level("urgent").Valid())
}
