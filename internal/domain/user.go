package domain

import "time"

// UserRole enumerates staff roles relevant to escalation routing.
type UserRole string

const (
	UserRoleAdmin      UserRole = "ADMIN"
	UserRoleManager    UserRole = "MANAGER"
	UserRoleTechnician UserRole = "TECHNICIAN"
	UserRoleAgent      UserRole = "AGENT"
)

// User is the slice of the staff record this engine reads for notification
// routing.
type User struct {
	ID             string
	Name           string
	Email          string
	Role           UserRole
	SupportGroupID *string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SupportGroup is a team of technicians responsible for a set of services.
type SupportGroup struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
