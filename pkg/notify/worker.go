package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/edukit/notify/pkg/directory"
	"github.com/edukit/notify/pkg/jobs"
	"github.com/edukit/notify/pkg/logger"
	"github.com/edukit/notify/pkg/mailer"
)

// SendSingleDelivery is the job payload for one instant email delivery.
type SendSingleDelivery struct {
	DeliveryID string `json:"delivery_id"`
}

// SendDigest is the job payload for one recipient's daily digest. It carries
// no delivery ids; the worker collects whatever digest-eligible deliveries
// are still queued for the recipient at run time.
type SendDigest struct {
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id"`
}

// DeliveryWorker owns the email side of the engine: it turns queued delivery
// rows into sent email. Handlers never return an error for a send failure;
// the delivery row records the outcome and the queued-status guard makes
// every handler safe to run twice.
type DeliveryWorker struct {
	storage Storage
	dir     directory.Directory
	mailer  mailer.Mailer
	cfg     RoutingConfig
	log     *slog.Logger
	now     func() time.Time
}

// DeliveryWorkerOption customizes a DeliveryWorker.
type DeliveryWorkerOption func(*DeliveryWorker)

// WithWorkerLogger sets the logger.
func WithWorkerLogger(log *slog.Logger) DeliveryWorkerOption {
	return func(w *DeliveryWorker) {
		if log != nil {
			w.log = log
		}
	}
}

// WithWorkerClock overrides the time source.
func WithWorkerClock(now func() time.Time) DeliveryWorkerOption {
	return func(w *DeliveryWorker) {
		if now != nil {
			w.now = now
		}
	}
}

// NewDeliveryWorker creates a delivery worker.
func NewDeliveryWorker(storage Storage, dir directory.Directory, m mailer.Mailer, cfg RoutingConfig, opts ...DeliveryWorkerOption) *DeliveryWorker {
	w := &DeliveryWorker{
		storage: storage,
		dir:     dir,
		mailer:  m,
		cfg:     cfg,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Handlers returns the job handlers to register with a jobs.Worker.
func (w *DeliveryWorker) Handlers() []jobs.Handler {
	return []jobs.Handler{
		jobs.NewJobHandler(w.sendSingle),
		jobs.NewJobHandler(w.sendDigest),
	}
}

func (w *DeliveryWorker) sendSingle(ctx context.Context, p SendSingleDelivery) error {
	d, err := w.storage.GetDelivery(ctx, p.DeliveryID)
	if err != nil {
		if errors.Is(err, ErrDeliveryNotFound) {
			w.log.WarnContext(ctx, "delivery vanished before send",
				logger.DeliveryID(p.DeliveryID))
			return nil
		}
		return fmt.Errorf("load delivery: %w", err)
	}
	if d.Status != DeliveryStatusQueued {
		return nil
	}

	msg, err := w.singleMessage(ctx, d)
	if err != nil {
		w.markFailed(ctx, d.ID, err)
		return nil
	}

	if err := w.mailer.Send(ctx, *msg); err != nil {
		w.markFailed(ctx, d.ID, err)
		return nil
	}

	if err := w.storage.MarkDeliverySent(ctx, d.ID, w.now()); err != nil {
		return fmt.Errorf("mark delivery sent: %w", err)
	}
	w.log.InfoContext(ctx, "delivery sent",
		logger.DeliveryID(d.ID),
		logger.UserID(d.UserID),
		logger.Channel(string(d.Channel)))
	return nil
}

func (w *DeliveryWorker) singleMessage(ctx context.Context, d *Delivery) (*mailer.Message, error) {
	if d.NotificationID == nil {
		return nil, errors.New("delivery has no notification")
	}
	n, err := w.storage.GetNotification(ctx, *d.NotificationID)
	if err != nil {
		return nil, fmt.Errorf("load notification: %w", err)
	}
	return &mailer.Message{
		To:       d.Address,
		Subject:  n.Title,
		BodyHTML: renderSingle(n),
		Tag:      "notification",
	}, nil
}

func (w *DeliveryWorker) sendDigest(ctx context.Context, p SendDigest) error {
	digestTypes := make([]string, 0, len(w.cfg.Digest))
	for t := range w.cfg.Digest {
		digestTypes = append(digestTypes, t)
	}

	deliveries, err := w.storage.QueuedDigestDeliveries(ctx, p.OrganizationID, p.UserID, digestTypes)
	if err != nil {
		return fmt.Errorf("load digest deliveries: %w", err)
	}
	if len(deliveries) == 0 {
		return nil
	}

	user, err := w.dir.Get(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			w.log.WarnContext(ctx, "digest recipient no longer exists",
				logger.UserID(p.UserID),
				logger.OrganizationID(p.OrganizationID))
			return nil
		}
		return fmt.Errorf("load digest recipient: %w", err)
	}
	if !user.HasEmail() {
		w.log.WarnContext(ctx, "digest recipient has no email address",
			logger.UserID(p.UserID))
		return nil
	}

	notifications := w.digestNotifications(ctx, deliveries)
	if len(notifications) == 0 {
		w.markAllFailed(ctx, deliveries, errors.New("no notifications behind digest deliveries"))
		return nil
	}

	msg := mailer.Message{
		To:       user.Email,
		Subject:  fmt.Sprintf("Your daily summary (%d updates)", len(notifications)),
		BodyHTML: renderDigest(user.Name, notifications),
		Tag:      "digest",
	}
	if err := w.mailer.Send(ctx, msg); err != nil {
		// The batch lives or dies together: one email either carried all of
		// them or none of them.
		w.markAllFailed(ctx, deliveries, err)
		return nil
	}

	sentAt := w.now()
	for _, d := range deliveries {
		if err := w.storage.MarkDeliverySent(ctx, d.ID, sentAt); err != nil {
			w.log.ErrorContext(ctx, "failed to mark digest delivery sent",
				logger.DeliveryID(d.ID),
				logger.Error(err))
		}
	}
	w.log.InfoContext(ctx, "digest sent",
		logger.UserID(p.UserID),
		logger.OrganizationID(p.OrganizationID),
		slog.Int("deliveries", len(deliveries)))
	return nil
}

// digestNotifications loads the distinct notifications behind the batch,
// oldest first. A delivery whose notification cannot be loaded is skipped
// rather than sinking the whole digest.
func (w *DeliveryWorker) digestNotifications(ctx context.Context, deliveries []Delivery) []*Notification {
	seen := make(map[string]bool, len(deliveries))
	var out []*Notification
	for _, d := range deliveries {
		if d.NotificationID == nil || seen[*d.NotificationID] {
			continue
		}
		seen[*d.NotificationID] = true
		n, err := w.storage.GetNotification(ctx, *d.NotificationID)
		if err != nil {
			w.log.ErrorContext(ctx, "failed to load digest notification",
				logger.NotificationID(*d.NotificationID),
				logger.Error(err))
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (w *DeliveryWorker) markFailed(ctx context.Context, deliveryID string, cause error) {
	w.log.ErrorContext(ctx, "delivery failed",
		logger.DeliveryID(deliveryID),
		logger.Error(cause))
	if err := w.storage.MarkDeliveryFailed(ctx, deliveryID, cause.Error()); err != nil {
		w.log.ErrorContext(ctx, "failed to mark delivery failed",
			logger.DeliveryID(deliveryID),
			logger.Error(err))
	}
}

func (w *DeliveryWorker) markAllFailed(ctx context.Context, deliveries []Delivery, cause error) {
	for _, d := range deliveries {
		w.markFailed(ctx, d.ID, cause)
	}
}

func renderSingle(n *Notification) string {
	var b strings.Builder
	b.WriteString("<h2>" + html.EscapeString(n.Title) + "</h2>")
	b.WriteString("<p>" + html.EscapeString(n.Body) + "</p>")
	if n.URL != "" {
		b.WriteString(`<p><a href="` + html.EscapeString(n.URL) + `">View details</a></p>`)
	}
	return b.String()
}

func renderDigest(name string, notifications []*Notification) string {
	var b strings.Builder
	if name != "" {
		b.WriteString("<p>Hi " + html.EscapeString(name) + ",</p>")
	}
	b.WriteString("<p>Here is what happened today:</p><ul>")
	for _, n := range notifications {
		b.WriteString("<li><strong>" + html.EscapeString(n.Title) + "</strong>")
		if n.Body != "" && n.Body != n.Title {
			b.WriteString(" &mdash; " + html.EscapeString(n.Body))
		}
		if n.URL != "" {
			b.WriteString(` (<a href="` + html.EscapeString(n.URL) + `">view</a>)`)
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}
