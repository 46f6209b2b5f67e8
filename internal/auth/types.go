package auth

import (
	"errors"
	"time"
)

// User represents a cloud account that gateways and fulfillment requests
// resolve to.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// GatewayToken is a stored gateway credential. The raw token never
// persists; only its hash does.
type GatewayToken struct {
	TokenHash  string     `json:"-"`
	UserID     string     `json:"user_id"`
	UniqueID   string     `json:"unique_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

// Sentinel errors for auth operations.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUserExists    = errors.New("user already exists")
	ErrTokenInvalid  = errors.New("invalid token")
	ErrTokenNotFound = errors.New("token not found")
)
