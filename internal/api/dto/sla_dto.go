package dto

import (
	"fmt"
	"time"

	"github.com/spec-kit/servicedesk-sla/internal/service"
)

// PassResponse is the JSON summary returned by the cron trigger and the
// status endpoint.
type PassResponse struct {
	Success              bool      `json:"success"`
	Timestamp            time.Time `json:"timestamp"`
	PassID               string    `json:"passId"`
	TotalChecked         int       `json:"totalChecked"`
	Skipped              int       `json:"skipped"`
	AtRisk               int       `json:"atRisk"`
	Breached             int       `json:"breached"`
	Escalated            int       `json:"escalated"`
	ResponseBreached     int       `json:"responseBreached"`
	NotificationsCreated int       `json:"notificationsCreated"`
	Errors               []string  `json:"errors,omitempty"`
}

// NewPassResponse maps a pass summary onto the wire shape.
func NewPassResponse(summary service.PassSummary) PassResponse {
	resp := PassResponse{
		Success:              true,
		Timestamp:            summary.FinishedAt,
		PassID:               summary.PassID,
		TotalChecked:         summary.TotalChecked,
		Skipped:              summary.Skipped,
		AtRisk:               summary.AtRisk,
		Breached:             summary.Breached,
		Escalated:            summary.Escalated,
		ResponseBreached:     summary.ResponseBreached,
		NotificationsCreated: summary.NotificationsCreated,
	}
	for _, passErr := range summary.Errors {
		if passErr.TicketID == "" {
			resp.Errors = append(resp.Errors, passErr.Reason)
			continue
		}
		resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %s", passErr.TicketID, passErr.Reason))
	}
	return resp
}
