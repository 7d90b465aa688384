package domain

import (
	"time"

	"github.com/google/uuid"
)

// Strategy is a yield-bearing product offering. BaseAPY is expressed in
// percentage points (8.5 means 8.5% annualized).
type Strategy struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Protocol         string    `json:"protocol"`
	Description      string    `json:"description"`
	BaseAPY          float64   `json:"base_apy"`
	PointsMultiplier float64   `json:"points_multiplier"`
	MinLockDays      int       `json:"min_lock_days"`
	PenaltyPercent   float64   `json:"early_withdrawal_penalty_percent"`
	MinDeposit       float64   `json:"min_deposit"`
	TVL              float64   `json:"tvl"`
	RiskLevel        string    `json:"risk_level"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RiskLevel constants
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)
