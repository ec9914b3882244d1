// Package user provides the User domain entity.
package user

import "time"

// Role is a user's permission level.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser || r == RoleGuest
}

// User is an authenticated person known to the queue.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Image      string    `json:"image,omitempty"`
	ExternalID string    `json:"externalId,omitempty"` // OAuth provider subject
	Role       Role      `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user has moderator rights.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
