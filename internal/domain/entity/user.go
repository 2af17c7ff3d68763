// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is a credential record for a marketplace account.
// The password is stored only as a bcrypt hash; the plaintext never leaves
// the registration/login request path.
type User struct {
	ID           uuid.UUID // Stable identity embedded in issued tokens.
	Email        string    // Unique login identifier.
	FirstName    string
	LastName     string
	PasswordHash string // bcrypt hash, salted per record.
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins the first and last name for display purposes.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}

	return u.FirstName + " " + u.LastName
}
