package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/edukit/notify/pkg/directory"
	"github.com/edukit/notify/pkg/jobs"
	"github.com/edukit/notify/pkg/logger"
)

// Payload carries the caller-supplied parts of an event. Everything is
// optional: title, body and level are derived from the event type and entity
// when absent.
type Payload struct {
	// OrganizationID scopes the event; when empty it is taken from the
	// entity instead.
	OrganizationID string

	// Title overrides the humanized event type as the notification title.
	Title string

	// Body overrides the derived notification body.
	Body string

	// URL is the in-app destination a notification links to.
	URL string

	// Level overrides the severity from the routing config.
	Level Level

	// ExcludeActor controls whether the triggering user is removed from the
	// audience. Nil means true: people do not need alerts about their own
	// actions.
	ExcludeActor *bool

	// Data is extra context persisted on the event record.
	Data map[string]any
}

// OutcomeKind classifies what Notify did with an event.
type OutcomeKind string

const (
	// OutcomeDropped means the event could not be processed and nothing was
	// persisted past the failure point. Reason says why.
	OutcomeDropped OutcomeKind = "dropped"

	// OutcomeNoAudience means the event was persisted but resolved to zero
	// recipients after actor exclusion.
	OutcomeNoAudience OutcomeKind = "no_audience"

	// OutcomeDispatched means at least one notification or delivery was
	// produced.
	OutcomeDispatched OutcomeKind = "dispatched"
)

// Outcome reports what an event fan-out produced. Notify never returns an
// error; failure modes are ordinary outcomes, logged and classified here, so
// a notification problem can never abort the business operation that raised
// the event.
type Outcome struct {
	Kind          OutcomeKind
	Reason        string
	EventID       string
	Recipients    int
	Notifications int
	Deliveries    int
}

// Dispatched reports whether the event produced any notifications or
// deliveries.
func (o Outcome) Dispatched() bool {
	return o.Kind == OutcomeDispatched
}

// JobEnqueuer enqueues background jobs. *jobs.Enqueuer satisfies it.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, payload any, opts ...jobs.EnqueueOption) error
}

// Orchestrator fans events out to recipients: resolve the audience, apply
// preferences, persist notifications and deliveries, then enqueue delivery
// jobs. Storage writes always happen before the corresponding enqueue, so a
// worker never claims a job whose rows it cannot load.
type Orchestrator struct {
	storage  Storage
	prefs    PreferenceStore
	registry *Registry
	enqueuer JobEnqueuer
	cfg      RoutingConfig
	log      *slog.Logger
	now      func() time.Time
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorLogger sets the logger.
func WithOrchestratorLogger(log *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// WithClock overrides the time source, used by digest scheduling.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator creates an orchestrator. All four dependencies are
// required.
func NewOrchestrator(storage Storage, prefs PreferenceStore, registry *Registry, enqueuer JobEnqueuer, cfg RoutingConfig, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		storage:  storage,
		prefs:    prefs,
		registry: registry,
		enqueuer: enqueuer,
		cfg:      cfg,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Notify fans one domain event out to its audience. It must be called after
// the business transaction that raised the event has committed; the rows it
// writes reference state that a delivery worker will read back moments later.
func (o *Orchestrator) Notify(ctx context.Context, eventType string, entity Entity, actor *directory.User, p Payload) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			o.log.ErrorContext(ctx, "panic during notification fan-out",
				logger.EventType(eventType),
				slog.Any("panic", r))
			outcome = Outcome{Kind: OutcomeDropped, Reason: "panic"}
		}
	}()

	orgID := p.OrganizationID
	if orgID == "" {
		orgID = entityOrganization(entity)
	}
	if orgID == "" {
		o.log.WarnContext(ctx, "event has no organization, dropping",
			logger.EventType(eventType),
			slog.String("entity_type", entity.EntityType()),
			slog.String("entity_id", entity.EntityID()))
		return Outcome{Kind: OutcomeDropped, Reason: "no organization"}
	}

	event := Event{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		Type:           eventType,
		EntityType:     entity.EntityType(),
		EntityID:       entity.EntityID(),
		Payload:        p.Data,
		CreatedAt:      o.now(),
	}
	if actor != nil {
		actorID := actor.ID
		event.ActorID = &actorID
	}
	if err := o.storage.CreateEvent(ctx, event); err != nil {
		o.log.ErrorContext(ctx, "failed to persist event",
			logger.EventType(eventType),
			logger.OrganizationID(orgID),
			logger.Error(err))
		return Outcome{Kind: OutcomeDropped, Reason: "event not persisted"}
	}

	recipients := o.registry.Resolve(ctx, eventType, orgID, entity, actor)
	recipients = o.applyActorExclusion(recipients, actor, p.ExcludeActor)
	if len(recipients) == 0 {
		o.log.WarnContext(ctx, "event resolved to empty audience",
			logger.EventType(eventType),
			logger.OrganizationID(orgID),
			logger.EventID(event.ID))
		return Outcome{Kind: OutcomeNoAudience, EventID: event.ID}
	}

	userIDs := make([]string, len(recipients))
	for i, u := range recipients {
		userIDs[i] = u.ID
	}
	stored, err := o.prefs.BulkGet(ctx, orgID, eventType, userIDs)
	if err != nil {
		// Defaults route everything, which beats dropping the event.
		o.log.ErrorContext(ctx, "failed to load preferences, using defaults",
			logger.EventType(eventType),
			logger.OrganizationID(orgID),
			logger.Error(err))
		stored = nil
	}

	title := p.Title
	if title == "" {
		title = HumanizeEventType(eventType)
	}
	body := p.Body
	if body == "" {
		body = deriveBody(title, entity)
	}
	level := p.Level
	if !level.Valid() {
		level = o.cfg.LevelFor(eventType)
	}
	emailAllowed := o.cfg.AllowsEmail(eventType)

	var created, delivered int
	for _, user := range recipients {
		pref := effectivePreference(stored, o.cfg, orgID, user.ID, eventType)
		wantsEmail := pref.EmailEnabled && emailAllowed && user.HasEmail()
		if !pref.InAppEnabled && !wantsEmail {
			continue
		}

		n := Notification{
			ID:             uuid.NewString(),
			OrganizationID: orgID,
			UserID:         user.ID,
			EventID:        event.ID,
			Title:          title,
			Body:           body,
			URL:            p.URL,
			Level:          level,
			CreatedAt:      o.now(),
		}
		if !pref.InAppEnabled {
			// Email-only recipients keep the record for history but never
			// see it as an unread alert.
			readAt := n.CreatedAt
			n.ReadAt = &readAt
		}
		if err := o.storage.CreateNotification(ctx, n); err != nil {
			o.log.ErrorContext(ctx, "failed to persist notification",
				logger.EventID(event.ID),
				logger.UserID(user.ID),
				logger.Error(err))
			continue
		}
		created++

		if !wantsEmail {
			continue
		}
		if err := o.createEmailDelivery(ctx, event, n, user, pref.Frequency); err != nil {
			o.log.ErrorContext(ctx, "failed to create delivery",
				logger.EventID(event.ID),
				logger.UserID(user.ID),
				logger.Error(err))
			continue
		}
		delivered++
	}

	o.log.InfoContext(ctx, "event dispatched",
		logger.EventType(eventType),
		logger.EventID(event.ID),
		logger.OrganizationID(orgID),
		logger.Recipients(len(recipients)),
		slog.Int("notifications", created),
		slog.Int("deliveries", delivered))

	if created == 0 && delivered == 0 {
		return Outcome{Kind: OutcomeNoAudience, EventID: event.ID, Recipients: len(recipients)}
	}
	return Outcome{
		Kind:          OutcomeDispatched,
		EventID:       event.ID,
		Recipients:    len(recipients),
		Notifications: created,
		Deliveries:    delivered,
	}
}

func (o *Orchestrator) applyActorExclusion(users []directory.User, actor *directory.User, override *bool) []directory.User {
	exclude := true
	if override != nil {
		exclude = *override
	}
	if !exclude || actor == nil {
		return users
	}
	out := users[:0]
	for _, u := range users {
		if u.ID != actor.ID {
			out = append(out, u)
		}
	}
	return out
}

// createEmailDelivery persists a queued delivery and enqueues the job that
// will send it. Digest-frequency deliveries do not get their own job; one
// digest job per (organization, user, day) is planted instead, deduplicated
// by the job store's unique key.
func (o *Orchestrator) createEmailDelivery(ctx context.Context, event Event, n Notification, user directory.User, freq Frequency) error {
	notificationID := n.ID
	d := Delivery{
		ID:             uuid.NewString(),
		OrganizationID: event.OrganizationID,
		NotificationID: &notificationID,
		UserID:         user.ID,
		EventID:        event.ID,
		Channel:        ChannelEmail,
		Address:        user.Email,
		Status:         DeliveryStatusQueued,
		CreatedAt:      o.now(),
	}
	if err := o.storage.CreateDelivery(ctx, d); err != nil {
		return fmt.Errorf("create delivery: %w", err)
	}

	if freq == FrequencyDailyDigest {
		return o.enqueueDigest(ctx, event.OrganizationID, user.ID)
	}

	if err := o.enqueuer.Enqueue(ctx, SendSingleDelivery{DeliveryID: d.ID}); err != nil {
		return fmt.Errorf("enqueue delivery job: %w", err)
	}
	return nil
}

func (o *Orchestrator) enqueueDigest(ctx context.Context, orgID, userID string) error {
	now := o.now()
	err := o.enqueuer.Enqueue(ctx, SendDigest{OrganizationID: orgID, UserID: userID},
		jobs.WithUniqueKey(digestKey(orgID, userID, now)),
		jobs.WithRunAt(endOfDay(now)),
	)
	if errors.Is(err, jobs.ErrDuplicateUniqueKey) {
		// A digest for this recipient and day is already planted; it will
		// pick up the new delivery when it runs.
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue digest job: %w", err)
	}
	return nil
}

func digestKey(orgID, userID string, day time.Time) string {
	return fmt.Sprintf("digest:%s:%s:%s", orgID, userID, day.Format("2006-01-02"))
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 55, 0, 0, t.Location())
}
