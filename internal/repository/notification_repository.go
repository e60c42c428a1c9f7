package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk-sla/internal/domain"
)

// NotificationRepository encapsulates in-app notification persistence.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	// ExistsSimilar reports whether a notification with the same user,
	// type and ticket payload was created at or after the given instant.
	// This is the dedup query backing NotifyOnce.
	ExistsSimilar(ctx context.Context, userID string, notificationType domain.NotificationType, ticketID string, since time.Time) (bool, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository instantiates repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	payload, err := json.Marshal(notification.Data)
	if err != nil {
		return err
	}

	const query = `
        INSERT INTO notifications (id, user_id, type, title, message, data, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err = r.pool.Exec(ctx, query,
		notification.ID,
		notification.UserID,
		notification.Type,
		notification.Title,
		notification.Message,
		payload,
		notification.CreatedAt,
	)
	return err
}

func (r *notificationRepository) ExistsSimilar(ctx context.Context, userID string, notificationType domain.NotificationType, ticketID string, since time.Time) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM notifications
            WHERE user_id=$1 AND type=$2 AND data->>'ticketId'=$3 AND created_at >= $4
        )`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, notificationType, ticketID, since).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const query = `
        SELECT id, user_id, type, title, message, data, created_at
        FROM notifications WHERE user_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var notification domain.Notification
		var payload []byte
		if err := rows.Scan(
			&notification.ID,
			&notification.UserID,
			&notification.Type,
			&notification.Title,
			&notification.Message,
			&payload,
			&notification.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &notification.Data); err != nil {
				return nil, err
			}
		}
		result = append(result, notification)
	}
	return result, rows.Err()
}
