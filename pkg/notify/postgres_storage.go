package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edukit/notify/pkg/pg"
)

// PostgresStorage is the production Storage backed by PostgreSQL.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a Postgres-backed storage.
func NewPostgresStorage(pool *pgxpool.Pool) (*PostgresStorage, error) {
	if pool == nil {
		return nil, ErrStorageNil
	}
	return &PostgresStorage{pool: pool}, nil
}

// CreateEvent implements Storage.
func (s *PostgresStorage) CreateEvent(ctx context.Context, event Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notify_events (id, organization_id, event_type, actor_id, entity_type, entity_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.OrganizationID, event.Type, event.ActorID,
		event.EntityType, event.EntityID, event.Payload, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetEvent implements Storage.
func (s *PostgresStorage) GetEvent(ctx context.Context, id string) (*Event, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, organization_id, event_type, actor_id, entity_type, entity_id, payload, created_at
		FROM notify_events WHERE id = $1`, id)

	var event Event
	err := row.Scan(&event.ID, &event.OrganizationID, &event.Type, &event.ActorID,
		&event.EntityType, &event.EntityID, &event.Payload, &event.CreatedAt)
	if pg.IsNotFoundError(err) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select event: %w", err)
	}
	return &event, nil
}

// CreateNotification implements Storage.
func (s *PostgresStorage) CreateNotification(ctx context.Context, n Notification) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, organization_id, user_id, event_id, title, body, url, level, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		n.ID, n.OrganizationID, n.UserID, n.EventID,
		n.Title, n.Body, n.URL, n.Level, n.ReadAt, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// GetNotification implements Storage.
func (s *PostgresStorage) GetNotification(ctx context.Context, id string) (*Notification, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, organization_id, user_id, event_id, title, body, url, level, read_at, created_at
		FROM notifications WHERE id = $1`, id)

	n, err := scanNotification(row)
	if pg.IsNotFoundError(err) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select notification: %w", err)
	}
	return n, nil
}

// ListNotifications implements Storage.
func (s *PostgresStorage) ListNotifications(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	query := `
		SELECT id, organization_id, user_id, event_id, title, body, url, level, read_at, created_at
		FROM notifications WHERE user_id = $1`
	if opts.UnreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC`
	args := []any{userID}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// CountUnread implements Storage.
func (s *PostgresStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// MarkRead implements Storage.
func (s *PostgresStorage) MarkRead(ctx context.Context, userID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications SET read_at = NOW()
		WHERE user_id = $1 AND id = ANY($2) AND read_at IS NULL`,
		userID, ids,
	)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// MarkAllRead implements Storage.
func (s *PostgresStorage) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE user_id = $1 AND read_at IS NULL`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}

// DeleteReadNotificationsBefore implements Storage.
func (s *PostgresStorage) DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM notifications WHERE read_at IS NOT NULL AND created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete read notifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// CreateDelivery implements Storage.
func (s *PostgresStorage) CreateDelivery(ctx context.Context, d Delivery) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO deliveries (id, organization_id, notification_id, user_id, event_id, channel, address, status, error, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.ID, d.OrganizationID, d.NotificationID, d.UserID, d.EventID,
		d.Channel, d.Address, d.Status, d.Error, d.SentAt, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// GetDelivery implements Storage.
func (s *PostgresStorage) GetDelivery(ctx context.Context, id string) (*Delivery, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, organization_id, notification_id, user_id, event_id, channel, address, status, error, sent_at, created_at
		FROM deliveries WHERE id = $1`, id)

	d, err := scanDelivery(row)
	if pg.IsNotFoundError(err) {
		return nil, ErrDeliveryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select delivery: %w", err)
	}
	return d, nil
}

// ListDeliveries implements Storage.
func (s *PostgresStorage) ListDeliveries(ctx context.Context, filter DeliveryFilter) ([]Delivery, error) {
	query := `
		SELECT id, organization_id, notification_id, user_id, event_id, channel, address, status, error, sent_at, created_at
		FROM deliveries WHERE 1=1`
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(clause, len(args))
	}
	if filter.OrganizationID != "" {
		add(` AND organization_id = $%d`, filter.OrganizationID)
	}
	if filter.UserID != "" {
		add(` AND user_id = $%d`, filter.UserID)
	}
	if filter.EventID != "" {
		add(` AND event_id = $%d`, filter.EventID)
	}
	if filter.Status != "" {
		add(` AND status = $%d`, filter.Status)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		add(` LIMIT $%d`, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// MarkDeliverySent implements Storage. The status predicate makes the
// transition a no-op when the row already left queued.
func (s *PostgresStorage) MarkDeliverySent(ctx context.Context, id string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE deliveries SET status = $1, sent_at = $2 WHERE id = $3 AND status = $4`,
		DeliveryStatusSent, at, id, DeliveryStatusQueued,
	)
	if err != nil {
		return fmt.Errorf("mark delivery sent: %w", err)
	}
	return nil
}

// MarkDeliveryFailed implements Storage.
func (s *PostgresStorage) MarkDeliveryFailed(ctx context.Context, id, errText string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE deliveries SET status = $1, error = $2 WHERE id = $3 AND status = $4`,
		DeliveryStatusFailed, errText, id, DeliveryStatusQueued,
	)
	if err != nil {
		return fmt.Errorf("mark delivery failed: %w", err)
	}
	return nil
}

// QueuedDigestDeliveries implements Storage.
func (s *PostgresStorage) QueuedDigestDeliveries(ctx context.Context, orgID, userID string, eventTypes []string) ([]Delivery, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT d.id, d.organization_id, d.notification_id, d.user_id, d.event_id, d.channel, d.address, d.status, d.error, d.sent_at, d.created_at
		FROM deliveries d
		JOIN notify_events e ON e.id = d.event_id
		WHERE d.organization_id = $1 AND d.user_id = $2
		  AND d.status = $3 AND d.channel = $4
		  AND e.event_type = ANY($5)
		ORDER BY d.created_at ASC`,
		orgID, userID, DeliveryStatusQueued, ChannelEmail, eventTypes,
	)
	if err != nil {
		return nil, fmt.Errorf("select digest deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.OrganizationID, &n.UserID, &n.EventID,
		&n.Title, &n.Body, &n.URL, &n.Level, &n.ReadAt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func scanDelivery(row pgx.Row) (*Delivery, error) {
	var d Delivery
	err := row.Scan(&d.ID, &d.OrganizationID, &d.NotificationID, &d.UserID, &d.EventID,
		&d.Channel, &d.Address, &d.Status, &d.Error, &d.SentAt, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
