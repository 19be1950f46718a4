package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukit/notify/pkg/logger"
)

func TestError(t *testing.T) {
	err := errors.New("boom")

	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	empty := logger.Error(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestIdentifierAttrs(t *testing.T) {
	tests := []struct {
		name string
		attr slog.Attr
		key  string
		want any
	}{
		{"user id", logger.UserID("u1"), "user_id", "u1"},
		{"organization id", logger.OrganizationID("o1"), "organization_id", "o1"},
		{"event id", logger.EventID("e1"), "event_id", "e1"},
		{"notification id", logger.NotificationID("n1"), "notification_id", "n1"},
		{"delivery id", logger.DeliveryID("d1"), "delivery_id", "d1"},
		{"job id", logger.JobID("j1"), "job_id", "j1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.key, tt.attr.Key)
			assert.Equal(t, tt.want, tt.attr.Value.Any())
		})
	}
}

func TestNilIdentifiersProduceEmptyAttr(t *testing.T) {
	for _, attr := range []slog.Attr{
		logger.UserID(nil),
		logger.OrganizationID(nil),
		logger.EventID(nil),
		logger.NotificationID(nil),
		logger.DeliveryID(nil),
		logger.JobID(nil),
	} {
		assert.True(t, attr.Equal(slog.Attr{}))
	}
}

func TestEventType(t *testing.T) {
	attr := logger.EventType("admission.approved")
	require.Equal(t, "event_type", attr.Key)
	assert.Equal(t, "admission.approved", attr.Value.String())
}

func TestRecipients(t *testing.T) {
	attr := logger.Recipients(3)
	require.Equal(t, "recipients", attr.Key)
	assert.Equal(t, int64(3), attr.Value.Int64())
}
