package models

import "time"

// UserRole represents the portal roles.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleStudent UserRole = "student"
)

// User is a registered portal account. The admin identity is a fixed
// credential pair resolved from configuration and never stored as a User.
//
// Passwords are kept in plaintext inside the registered-users record, as
// the system being ported did. Known security smell; hashing is a planned
// breaking change to the stored record shape.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// UserInfo describes a user in API responses, without the credential.
type UserInfo struct {
	ID        string   `json:"id,omitempty"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	Role      UserRole `json:"role"`
}

// Info converts a stored user into its response shape.
func (u User) Info() UserInfo {
	return UserInfo{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}
