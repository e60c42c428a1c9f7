package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk-sla/internal/domain"
	"github.com/spec-kit/servicedesk-sla/internal/repository"
)

// Notifier creates in-app notifications with time-window deduplication.
type Notifier interface {
	NotifyOnce(ctx context.Context, now time.Time, userID string, notificationType domain.NotificationType, title, message string, data map[string]any) (bool, error)
}

// NotifierService is the Postgres-backed Notifier.
type NotifierService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	window        time.Duration
	logger        *zap.Logger
}

// NewNotifierService constructs the service. The window is the dedup
// lookback applied to every notification type.
func NewNotifierService(notifications repository.NotificationRepository, users repository.UserRepository, window time.Duration, logger *zap.Logger) *NotifierService {
	return &NotifierService{
		notifications: notifications,
		users:         users,
		window:        window,
		logger:        logger,
	}
}

// NotifyOnce creates a notification unless an equivalent one (same user,
// type and ticket payload) already exists inside the lookback window.
// Returns whether a record was created. This window is the sole dedup
// mechanism for checks that re-fire every pass, such as at-risk alerts.
func (s *NotifierService) NotifyOnce(ctx context.Context, now time.Time, userID string, notificationType domain.NotificationType, title, message string, data map[string]any) (bool, error) {
	ticketID, _ := data["ticketId"].(string)

	exists, err := s.notifications.ExistsSimilar(ctx, userID, notificationType, ticketID, now.Add(-s.window))
	if err != nil {
		return false, err
	}
	if exists {
		s.logger.Debug("notification suppressed by dedup window",
			zap.String("user_id", userID),
			zap.String("type", string(notificationType)),
			zap.String("ticket_id", ticketID))
		return false, nil
	}

	notification := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      notificationType,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: now,
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		return false, err
	}
	return true, nil
}

// ListForUser returns the user's notifications, newest first. The lookup
// fails with pgx.ErrNoRows when the user does not exist.
func (s *NotifierService) ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.notifications.ListByUser(ctx, userID, limit, offset)
}
