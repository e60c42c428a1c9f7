package domain

import "time"

// NotificationType enumerates in-app notification categories.
type NotificationType string

const (
	NotificationTicketEscalated NotificationType = "TICKET_ESCALATED"
	NotificationSystemAlert     NotificationType = "SYSTEM_ALERT"
)

// Notification is an in-app alert record. Immutable once created; delivery
// to push/email channels is handled elsewhere.
type Notification struct {
	ID        string
	UserID    string
	Type      NotificationType
	Title     string
	Message   string
	Data      map[string]any
	CreatedAt time.Time
}

// TicketID extracts the ticket reference from the structured payload.
func (n *Notification) TicketID() string {
	if n.Data == nil {
		return ""
	}
	id, _ := n.Data["ticketId"].(string)
	return id
}
