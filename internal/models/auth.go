package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// IssueTokenRequest describes the principal a token is minted for.
type IssueTokenRequest struct {
	UserID   string        `json:"user_id" validate:"required"`
	FullName string        `json:"full_name"`
	Role     UserRole      `json:"role" validate:"required,oneof=ADMIN TEACHER VIEWER"`
	TTL      time.Duration `json:"-"`
}

// TokenResponse carries an issued access token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}
