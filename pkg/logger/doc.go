// Package logger provides slog helpers shared across the notification engine:
// a small factory with environment-driven configuration and typed attribute
// constructors for the identifiers that appear in nearly every log line
// (organization, user, event, notification, delivery, job).
//
// Attribute helpers return an empty slog.Attr when given a nil value, so call
// sites never need nil guards:
//
//	log.LogAttrs(ctx, slog.LevelWarn, "delivery failed",
//	    logger.DeliveryID(d.ID),
//	    logger.Error(err),
//	)
package logger
