package domain

import "time"

// UserRole enumerates capability roles for chat identities.
type UserRole string

const (
	RolePlain UserRole = "PLAIN"
	RoleAgent UserRole = "AGENT"
	RoleOwner UserRole = "OWNER"
)

// User is the domain model for every chat identity the router knows about,
// end users and support agents alike. Rows are never deleted; closed tickets
// keep their user reference.
type User struct {
	ID          string
	ExternalID  int64
	DisplayName string
	Role        UserRole
	Language    string
	CreatedAt   time.Time
}

// IsStaff reports whether the identity may act on tickets.
func (u *User) IsStaff() bool {
	return u != nil && (u.Role == RoleAgent || u.Role == RoleOwner)
}
