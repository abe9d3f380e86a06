package model

import "time"

// User is a registered account. The two hash fields never leave the
// repository/service boundary and are excluded from JSON.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	RefreshTokenHash *string   `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HasActiveRefresh reports whether a refresh token is currently bound to the user.
func (u *User) HasActiveRefresh() bool {
	return u.RefreshTokenHash != nil && *u.RefreshTokenHash != ""
}
