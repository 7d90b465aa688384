package domain

import (
	"time"

	"github.com/google/uuid"
)

// Position represents a single user's deposit into a yield strategy.
// Lock terms are snapshotted from the strategy at deposit time so that a
// later strategy change never alters the terms of an existing position.
type Position struct {
	ID                uuid.UUID  `json:"id"`
	UserID            uuid.UUID  `json:"user_id"`
	StrategyID        uuid.UUID  `json:"strategy_id"`
	Principal         float64    `json:"principal"`
	EntryPrice        float64    `json:"entry_price"`
	CurrentValue      float64    `json:"current_value"`
	PointsEarned      float64    `json:"points_earned"`
	AutoCompound      bool       `json:"auto_compound"`
	CompoundFrequency string     `json:"compound_frequency"`
	MinLockDays       int        `json:"min_lock_days"`
	PenaltyPercent    float64    `json:"early_withdrawal_penalty_percent"`
	Status            string     `json:"status"`
	TxHash            *string    `json:"tx_hash,omitempty"`
	Version           int64      `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	LastCompoundAt    time.Time  `json:"last_compound_at"`
	WithdrawnAt       *time.Time `json:"withdrawn_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// PositionStatus constants
const (
	PositionActive    = "active"
	PositionWithdrawn = "withdrawn"
)

// CompoundFrequency constants
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

const hoursPerDay = 24.0

// frequencyInterval returns the minimum elapsed duration before the next
// compounding step is eligible. Unknown frequencies return false.
func frequencyInterval(frequency string) (time.Duration, bool) {
	switch frequency {
	case FrequencyDaily:
		return 24 * time.Hour, true
	case FrequencyWeekly:
		return 7 * 24 * time.Hour, true
	case FrequencyMonthly:
		return 30 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// ValidFrequency reports whether the string names a known compounding
// frequency.
func ValidFrequency(frequency string) bool {
	_, ok := frequencyInterval(frequency)
	return ok
}

// IsActive checks if the position can still be compounded or withdrawn.
func (p *Position) IsActive() bool {
	return p.Status == PositionActive
}

// CompoundDue reports whether enough time has passed since the last
// compounding step for the position's frequency setting.
func (p *Position) CompoundDue(now time.Time) bool {
	interval, ok := frequencyInterval(p.CompoundFrequency)
	if !ok {
		return false
	}
	return now.Sub(p.LastCompoundAt) >= interval
}

// DaysLocked returns the fractional number of days the position has been
// held, anchored at CreatedAt.
func (p *Position) DaysLocked(now time.Time) float64 {
	return now.Sub(p.CreatedAt).Hours() / hoursPerDay
}

// InLockPeriod reports whether an early-withdrawal penalty still applies.
func (p *Position) InLockPeriod(now time.Time) bool {
	return p.DaysLocked(now) < float64(p.MinLockDays)
}

// YieldEarned returns the accrued yield over the initial principal.
func (p *Position) YieldEarned() float64 {
	return p.CurrentValue - p.Principal
}
