// Package notify is a notification routing and delivery engine. A single
// domain event fans out to per-recipient notifications and per-channel
// deliveries: resolvers decide who the audience is, preferences decide how
// each recipient hears about it, and background jobs carry the email.
//
// The core flow is one call:
//
//	reg := notify.DefaultRegistry(dir)
//	orc := notify.NewOrchestrator(storage, prefs, reg, enqueuer, notify.DefaultRoutingConfig())
//
//	outcome := orc.Notify(ctx, "doc.assigned", doc, &actor, notify.Payload{
//		URL: "/documents/" + doc.ID,
//	})
//
// Notify never returns an error and never panics outward; every failure mode
// is logged and classified in the returned Outcome, so the business operation
// that raised the event is never disturbed by notification trouble.
//
// Email leaves through a jobs.Worker running the DeliveryWorker handlers:
//
//	worker.RegisterHandlers(notify.NewDeliveryWorker(storage, dir, m, cfg).Handlers()...)
//
// Instant deliveries get one job each. Digest-frequency deliveries share a
// single daily job per recipient, deduplicated by a unique job key, which
// collects whatever is still queued when it fires at the end of the day.
package notify
