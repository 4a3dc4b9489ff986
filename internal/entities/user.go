package entities

import "time"

// User represents a user entity in the database
type User struct {
	ID           string    `json:"_id"` // UUID
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash *string   `json:"-"` // nil for accounts created through OAuth
	RefreshToken *string   `json:"-"` // Current refresh token, nil after logout
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Public returns a copy without the password hash and refresh token.
func (u *User) Public() *User {
	cp := *u
	cp.PasswordHash = nil
	cp.RefreshToken = nil
	return &cp
}
