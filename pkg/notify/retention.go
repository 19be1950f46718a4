package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edukit/notify/pkg/jobs"
	"github.com/edukit/notify/pkg/logger"
)

// RetentionSweepName is the periodic job name for the notification cleanup.
const RetentionSweepName = "notify:retention_sweep"

// DefaultRetentionAge keeps read notifications for 90 days.
const DefaultRetentionAge = 90 * 24 * time.Hour

// NewRetentionSweep returns a periodic handler that deletes read
// notifications older than maxAge. Unread notifications are kept forever;
// only what the user has already seen ages out. Register it with a
// jobs.Scheduler on whatever cadence suits the deployment, daily being
// typical.
func NewRetentionSweep(storage Storage, maxAge time.Duration, log *slog.Logger) jobs.Handler {
	if maxAge <= 0 {
		maxAge = DefaultRetentionAge
	}
	if log == nil {
		log = slog.Default()
	}
	return jobs.NewPeriodicHandler(RetentionSweepName, func(ctx context.Context) error {
		cutoff := time.Now().Add(-maxAge)
		removed, err := storage.DeleteReadNotificationsBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("delete read notifications: %w", err)
		}
		log.InfoContext(ctx, "retention sweep completed",
			slog.Int("removed", removed),
			slog.Time("cutoff", cutoff),
			logger.Component("notify"))
		return nil
	})
}
