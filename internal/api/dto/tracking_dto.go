package dto

import (
	"time"

	"github.com/spec-kit/servicedesk-sla/internal/domain"
)

// TrackingResponse is the per-ticket breach state served by the status
// endpoint.
type TrackingResponse struct {
	ID                   string     `json:"id"`
	TicketID             string     `json:"ticketId"`
	TemplateID           string     `json:"templateId"`
	IsResponseBreached   bool       `json:"isResponseBreached"`
	IsResolutionBreached bool       `json:"isResolutionBreached"`
	IsEscalated          bool       `json:"isEscalated"`
	ResponseTime         *time.Time `json:"responseTime,omitempty"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// NewTrackingResponse maps a tracking record onto the wire shape.
func NewTrackingResponse(tracking domain.SlaTracking) TrackingResponse {
	return TrackingResponse{
		ID:                   tracking.ID,
		TicketID:             tracking.TicketID,
		TemplateID:           tracking.TemplateID,
		IsResponseBreached:   tracking.IsResponseBreached,
		IsResolutionBreached: tracking.IsResolutionBreached,
		IsEscalated:          tracking.IsEscalated,
		ResponseTime:         tracking.ResponseTime,
		UpdatedAt:            tracking.UpdatedAt,
	}
}
