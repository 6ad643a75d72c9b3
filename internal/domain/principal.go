package domain

import (
	"strings"
	"time"
)

// Role is the privilege level of a principal
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Status is the moderation state of a principal
type Status string

const (
	StatusActive Status = "active"
	StatusBanned Status = "banned"
)

// AdminID is the id of the synthetic administrator principal
const AdminID = "admin"

// Principal is an account that can hold a session
type Principal struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Status       Status    `json:"status"`
	Avatar       string    `json:"avatar,omitempty"` // URL or data blob
	Favorites    []Movie   `json:"favorites"`        // Denormalized snapshots, unique by ID
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the principal has the admin role
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// IsBanned reports whether the principal is banned
func (p Principal) IsBanned() bool { return p.Status == StatusBanned }

// FavoriteIndex returns the position of movieID in favorites, or -1
func (p Principal) FavoriteIndex(movieID int) int {
	for i, m := range p.Favorites {
		if m.ID == movieID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy safe to hand to callers
func (p Principal) Clone() Principal {
	c := p
	if p.Favorites != nil {
		c.Favorites = make([]Movie, len(p.Favorites))
		copy(c.Favorites, p.Favorites)
	}
	return c
}

// SignupData is the input of account creation
type SignupData struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=1,max=72"` // bcrypt input limit
	Avatar   string `validate:"omitempty"`
}

// ProfileUpdate is a partial merge applied to the current principal.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Name     *string `validate:"omitempty,min=1,max=100"`
	Email    *string `validate:"omitempty,email"`
	Password *string `validate:"omitempty,min=1,max=72"`
	Avatar   *string
}

// RosterStats summarizes the roster for the admin dashboard
type RosterStats struct {
	Total  int
	Admins int
	Active int
	Banned int
}

// NormalizeEmail is the canonical form used for uniqueness checks
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
