package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen          TicketStatus = "OPEN"
	TicketStatusInProgress    TicketStatus = "IN_PROGRESS"
	TicketStatusPendingVendor TicketStatus = "PENDING_VENDOR"
	TicketStatusResolved      TicketStatus = "RESOLVED"
	TicketStatusClosed        TicketStatus = "CLOSED"
	TicketStatusCancelled     TicketStatus = "CANCELLED"
)

// ActiveSlaStatuses lists the statuses for which SLA clocks keep running.
// Tickets in any other status are excluded from SLA evaluation.
var ActiveSlaStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusPendingVendor,
}

// SlaActive reports whether a ticket in this status is subject to SLA evaluation.
func (s TicketStatus) SlaActive() bool {
	for _, active := range ActiveSlaStatuses {
		if s == active {
			return true
		}
	}
	return false
}

// Ticket is the slice of the ticket aggregate this engine reads. Ticket CRUD,
// assignment and status transitions live in the main service-desk application;
// from here the record is read-only.
type Ticket struct {
	ID               string
	TicketNumber     string
	Title            string
	Status           TicketStatus
	AssignedToID     *string
	SupportGroupID   *string
	SlaStartAt       *time.Time
	SlaPausedAt      *time.Time
	SlaPausedTotalMs int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Paused reports whether the ticket's SLA clock is currently frozen.
func (t *Ticket) Paused() bool {
	return t.SlaPausedAt != nil
}

// PausedTotal returns the accumulated pause time as a duration.
func (t *Ticket) PausedTotal() time.Duration {
	return time.Duration(t.SlaPausedTotalMs) * time.Millisecond
}
