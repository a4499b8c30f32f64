package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/careslot/internal/db"
)

type PgStore struct {
	db db.DB
}

func NewPgStore(conn db.DB) *PgStore {
	return &PgStore{db: conn}
}

const notificationColumns = `id, user_id, type, title, message, is_read, related_entity_id, created_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	var typ string

	err := row.Scan(
		&n.ID,
		&n.UserID,
		&typ,
		&n.Title,
		&n.Message,
		&n.IsRead,
		&n.RelatedEntityID,
		&n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	n.Type = Type(typ)
	return &n, nil
}

func (s *PgStore) Insert(ctx context.Context, n Notification) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, is_read, related_entity_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, n.ID, n.UserID, string(n.Type), n.Title, n.Message, n.IsRead, n.RelatedEntityID, n.CreatedAt)
	if err != nil {
		return db.Wrap("insert notification", err)
	}
	return nil
}

// Deliver lets the store act as a sink when no stream is configured.
func (s *PgStore) Deliver(ctx context.Context, n Notification) error {
	return s.Insert(ctx, n)
}

func (s *PgStore) ListByUser(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1
		  AND ($2 = false OR is_read = false)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, userID, opts.UnreadOnly, clampLimit(opts.Limit), max(opts.Offset, 0))
	if err != nil {
		return nil, db.Wrap("query notifications", err)
	}
	defer rows.Close()

	result := make([]Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, db.Wrap("scan notification", err)
		}
		result = append(result, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Wrap("iterate notifications", err)
	}
	return result, nil
}

func (s *PgStore) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT count(*) FROM notifications WHERE user_id = $1 AND is_read = false
	`, userID).Scan(&count)
	if err != nil {
		return 0, db.Wrap("count unread notifications", err)
	}
	return count, nil
}

func (s *PgStore) MarkRead(ctx context.Context, id uuid.UUID) (*Notification, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE notifications SET is_read = true
		WHERE id = $1
		RETURNING `+notificationColumns, id)
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, db.Wrap("mark notification read", err)
	}
	return n, nil
}

func (s *PgStore) ToggleRead(ctx context.Context, id uuid.UUID) (*Notification, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE notifications SET is_read = NOT is_read
		WHERE id = $1
		RETURNING `+notificationColumns, id)
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, db.Wrap("toggle notification read", err)
	}
	return n, nil
}

func (s *PgStore) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false
	`, userID)
	if err != nil {
		return 0, db.Wrap("mark all notifications read", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PgStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return db.Wrap("delete notification", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
