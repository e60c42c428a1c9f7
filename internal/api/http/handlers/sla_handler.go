package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk-sla/internal/api/dto"
	"github.com/spec-kit/servicedesk-sla/internal/service"
	apperrors "github.com/spec-kit/servicedesk-sla/pkg/util/errorutil"
)

// SlaHandler exposes the cron trigger and pass status endpoints.
type SlaHandler struct {
	monitor    *service.MonitorService
	cronSecret string
	logger     *zap.Logger
}

// NewSlaHandler constructs handler.
func NewSlaHandler(monitor *service.MonitorService, cronSecret string, logger *zap.Logger) *SlaHandler {
	return &SlaHandler{monitor: monitor, cronSecret: cronSecret, logger: logger}
}

// Check handles GET /internal/sla/check. The external scheduler hits this
// every ~15 minutes with the shared secret.
func (h *SlaHandler) Check(c *fiber.Ctx) error {
	secret := c.Query("secret")
	if secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.cronSecret)) != 1 {
		return apperrors.NewUnauthorized("missing or invalid secret")
	}

	summary, err := h.monitor.RunPass(c.UserContext(), time.Now())
	if err != nil {
		if errors.Is(err, service.ErrPassInProgress) {
			return apperrors.NewConflict("an sla pass is already running", nil)
		}
		// Systemic failure: report the partial counts accumulated so far.
		h.logger.Error("sla pass aborted", zap.Error(err))
		resp := dto.NewPassResponse(summary)
		resp.Success = false
		resp.Timestamp = time.Now()
		resp.Errors = append(resp.Errors, err.Error())
		return c.Status(http.StatusInternalServerError).JSON(resp)
	}

	return c.JSON(dto.NewPassResponse(summary))
}

// Status handles GET /sla/status, serving the most recent pass summary.
func (h *SlaHandler) Status(c *fiber.Ctx) error {
	summary, err := h.monitor.LastSummary(c.UserContext())
	if err != nil {
		return apperrors.NewDependencyError("pass summary cache", err)
	}
	if summary == nil {
		return apperrors.NewNotFound("sla pass summary", nil)
	}
	return c.JSON(dto.NewPassResponse(*summary))
}

// TicketStatus handles GET /sla/tickets/:ticketId, serving the persisted
// breach-flag state for one ticket.
func (h *SlaHandler) TicketStatus(c *fiber.Ctx) error {
	tracking, err := h.monitor.TrackingStatus(c.UserContext(), c.Params("ticketId"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTrackingResponse(*tracking))
}
