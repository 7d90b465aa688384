package domain

import (
	"time"

	"github.com/google/uuid"
)

// SweepItem records the outcome of one position within a compounding
// sweep. A failed item never aborts its siblings.
type SweepItem struct {
	PositionID   uuid.UUID `json:"position_id"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	YieldEarned  float64   `json:"yield_earned,omitempty"`
	PointsEarned float64   `json:"points_earned,omitempty"`
	NewValue     float64   `json:"new_value,omitempty"`
}

// SweepReport is the per-item tally returned by a compounding sweep.
// The sweep as a whole always completes; failures are counted, not
// propagated.
type SweepReport struct {
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Eligible   int         `json:"eligible"`
	Compounded int         `json:"compounded"`
	Skipped    int         `json:"skipped"`
	Failed     int         `json:"failed"`
	Items      []SweepItem `json:"items,omitempty"`
}
