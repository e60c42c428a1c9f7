package domain

import "time"

// SlaTemplate holds the per-service deadlines, all expressed in hours.
// Templates are owned by the service catalog and read-only here.
type SlaTemplate struct {
	ID              string
	ServiceID       string
	ResponseHours   int
	ResolutionHours int
	EscalationHours int
	// BusinessHoursOnly is persisted and surfaced but not honored by the
	// clock: elapsed time accrues on calendar hours regardless.
	BusinessHoursOnly bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Valid reports whether the template carries usable deadlines.
func (t *SlaTemplate) Valid() bool {
	return t != nil && t.ResponseHours > 0 && t.ResolutionHours > 0 && t.EscalationHours > 0
}

// BreachFlag names one of the one-way booleans on a tracking record.
type BreachFlag string

const (
	BreachFlagResponse   BreachFlag = "response_breached"
	BreachFlagResolution BreachFlag = "resolution_breached"
	BreachFlagEscalated  BreachFlag = "escalated"
)

// SlaTracking carries the mutable breach state for one ticket. The three
// booleans only ever transition false to true; nothing in this engine resets
// them. ResponseTime is written by the first-response collaborator.
type SlaTracking struct {
	ID                   string
	TicketID             string
	TemplateID           string
	IsResponseBreached   bool
	IsResolutionBreached bool
	IsEscalated          bool
	ResponseTime         *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TrackedTicket is one row of the bulk scheduler load: the tracking record
// joined with its ticket's SLA fields and its template. Template is nil when
// the join found none, which the pass records as a per-ticket error.
type TrackedTicket struct {
	Tracking SlaTracking
	Ticket   Ticket
	Template *SlaTemplate
}

// SlaStart returns the instant the SLA clock started: the ticket's
// slaStartAt when set, otherwise the tracking record's creation time.
func (r *TrackedTicket) SlaStart() time.Time {
	if r.Ticket.SlaStartAt != nil {
		return *r.Ticket.SlaStartAt
	}
	return r.Tracking.CreatedAt
}
