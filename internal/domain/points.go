package domain

import (
	"time"

	"github.com/google/uuid"
)

// PointsEntry is one row of a user's points ledger. Points are only ever
// appended; totals are the sum of a user's entries.
type PointsEntry struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Points      float64   `json:"points"`
	Multiplier  float64   `json:"multiplier"`
	ActionType  string    `json:"action_type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// PointsAction constants
const (
	ActionAutoCompound  = "auto_compound"
	ActionSignupBonus   = "signup_bonus"
	ActionReferralBonus = "referral_bonus"
	ActionManualAdjust  = "manual_adjust"
)

// LeaderboardEntry is one ranked row of the global leaderboard.
type LeaderboardEntry struct {
	Rank          int     `json:"rank"`
	UserID        uuid.UUID `json:"user_id"`
	Username      string  `json:"username"`
	WalletAddress *string `json:"wallet_address,omitempty"`
	TotalPoints   float64 `json:"total_points"`
}

// LeaderboardPage is a paginated slice of the leaderboard.
type LeaderboardPage struct {
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	TotalUsers int                 `json:"total_users"`
	Entries    []*LeaderboardEntry `json:"entries"`
}

// UserPoints is a user's aggregate standing.
type UserPoints struct {
	UserID      uuid.UUID      `json:"user_id"`
	TotalPoints float64        `json:"total_points"`
	Rank        *int           `json:"rank,omitempty"`
	History     []*PointsEntry `json:"history"`
}
