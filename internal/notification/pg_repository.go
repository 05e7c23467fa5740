package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

type PgRepository struct {
	q db.Querier
}

func NewPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{q: q}
}

const notificationColumns = `id, appointment_id, recipient_type, recipient_id, title, message, created_at, is_read, published_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(
		&n.ID,
		&n.AppointmentID,
		&n.RecipientType,
		&n.RecipientID,
		&n.Title,
		&n.Message,
		&n.CreatedAt,
		&n.Read,
		&n.PublishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

func collect(rows pgx.Rows) ([]Notification, error) {
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	return result, rows.Err()
}

func (r *PgRepository) Insert(ctx context.Context, n Notification) (*Notification, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	row := r.q.QueryRow(ctx, `
		INSERT INTO notifications (id, appointment_id, recipient_type, recipient_id, title, message, created_at, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, now(), false)
		RETURNING `+notificationColumns,
		n.ID, n.AppointmentID, n.RecipientType, n.RecipientID, n.Title, n.Message)

	created, err := scanNotification(row)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return created, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	row := r.q.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	return scanNotification(row)
}

func (r *PgRepository) ListForRecipient(ctx context.Context, rc Recipient) ([]Notification, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE recipient_type = $1 AND recipient_id = $2
		ORDER BY created_at DESC, id
	`, rc.Type, rc.ID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *PgRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `UPDATE notifications SET is_read = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *PgRepository) MarkAllRead(ctx context.Context, rc Recipient) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE notifications
		SET is_read = true
		WHERE recipient_type = $1 AND recipient_id = $2 AND is_read = false
	`, rc.Type, rc.ID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) CountUnread(ctx context.Context, rc Recipient) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_type = $1 AND recipient_id = $2 AND is_read = false
	`, rc.Type, rc.ID).Scan(&n)
	return n, err
}

func (r *PgRepository) ListUnpublished(ctx context.Context, limit int) ([]Notification, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *PgRepository) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx, `UPDATE notifications SET published_at = $2 WHERE id = ANY($1)`, ids, at)
	if err != nil {
		return fmt.Errorf("mark notifications published: %w", err)
	}
	return nil
}

// PgOutbox runs relay batches in a transaction over the pool.
type PgOutbox struct {
	pool *pgxpool.Pool
}

func NewPgOutbox(pool *pgxpool.Pool) *PgOutbox {
	return &PgOutbox{pool: pool}
}

func (o *PgOutbox) Do(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	return db.WithTx(ctx, o.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewPgRepository(tx))
	})
}
