package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSlaResolutionBreached EventType = "sla_resolution_breached"
	EventSlaResponseBreached   EventType = "sla_response_breached"
	EventSlaEscalated          EventType = "sla_escalated"
	EventSlaAtRisk             EventType = "sla_at_risk"
)

// Event represents an SLA transition emitted by the scheduler pass.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SlaBreachPayload payload.
type SlaBreachPayload struct {
	TrackingID      string  `json:"tracking_id"`
	TicketNumber    string  `json:"ticket_number"`
	ElapsedHours    float64 `json:"elapsed_hours"`
	ResolutionHours int     `json:"resolution_hours"`
}

// SlaResponseBreachPayload payload.
type SlaResponseBreachPayload struct {
	TrackingID    string  `json:"tracking_id"`
	TicketNumber  string  `json:"ticket_number"`
	ElapsedHours  float64 `json:"elapsed_hours"`
	ResponseHours int     `json:"response_hours"`
}

// SlaEscalatedPayload payload.
type SlaEscalatedPayload struct {
	TrackingID      string  `json:"tracking_id"`
	TicketNumber    string  `json:"ticket_number"`
	ElapsedHours    float64 `json:"elapsed_hours"`
	EscalationHours int     `json:"escalation_hours"`
}

// SlaAtRiskPayload payload.
type SlaAtRiskPayload struct {
	TrackingID       string  `json:"tracking_id"`
	TicketNumber     string  `json:"ticket_number"`
	PercentRemaining float64 `json:"percent_remaining"`
	RemainingMinutes int64   `json:"remaining_minutes"`
}
