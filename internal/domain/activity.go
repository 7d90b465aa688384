package domain

import (
	"time"

	"github.com/google/uuid"
)

// Activity is a human-readable record of something a user did. Writing
// one is always best-effort: a failed activity insert must never fail
// the operation that produced it.
type Activity struct {
	ID           uuid.UUID      `json:"id"`
	UserID       uuid.UUID      `json:"user_id"`
	ActivityType string         `json:"activity_type"`
	Description  string         `json:"description"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ActivityType constants
const (
	ActivityDeposit      = "vault_deposit"
	ActivityWithdrawal   = "vault_withdrawal"
	ActivityAutoCompound = "auto_compound"
	ActivityWalletLinked = "wallet_linked"
)
