package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account on the platform. WalletAddress is set once
// the user links an EVM wallet through signature verification.
type User struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"` // Never expose password hash in JSON
	WalletAddress *string   `json:"wallet_address,omitempty"`
	Role          string    `json:"role"`
	ReferralCode  string    `json:"referral_code"`
	ReferredBy    *uuid.UUID `json:"referred_by,omitempty"`
	TotalPoints   float64   `json:"total_points"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UserRole constants
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)
