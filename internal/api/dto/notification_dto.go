package dto

import (
	"time"

	"github.com/spec-kit/servicedesk-sla/internal/domain"
)

// NotificationResponse is one in-app notification on the wire.
type NotificationResponse struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// NotificationListResponse wraps a page of notifications.
type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Count         int                    `json:"count"`
}

// NewNotificationListResponse maps notifications onto the wire shape.
func NewNotificationListResponse(notifications []domain.Notification) NotificationListResponse {
	resp := NotificationListResponse{
		Notifications: make([]NotificationResponse, 0, len(notifications)),
	}
	for _, n := range notifications {
		resp.Notifications = append(resp.Notifications, NotificationResponse{
			ID:        n.ID,
			Type:      string(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			Data:      n.Data,
			CreatedAt: n.CreatedAt,
		})
	}
	resp.Count = len(resp.Notifications)
	return resp
}
