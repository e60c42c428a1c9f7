package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk-sla/internal/api/dto"
	"github.com/spec-kit/servicedesk-sla/internal/service"
)

// NotificationHandler exposes the in-app notification inbox.
type NotificationHandler struct {
	notifier *service.NotifierService
}

// NewNotificationHandler constructs handler.
func NewNotificationHandler(notifier *service.NotifierService) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

// ListForUser handles GET /users/:userId/notifications.
func (h *NotificationHandler) ListForUser(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	notifications, err := h.notifier.ListForUser(c.UserContext(), c.Params("userId"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewNotificationListResponse(notifications))
}
