package model

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AppClaims is the JWT wire form. Subject carries the user id.
type AppClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenClaims is the decoded identity carried by an access or refresh token.
type TokenClaims struct {
	Subject   string
	Email     string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RefreshClaims is what the refresh guard hands to the handler: the verified
// claims plus the raw token so the service can match it against the stored hash.
type RefreshClaims struct {
	TokenClaims
	RefreshToken string
}
