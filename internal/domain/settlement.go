package domain

import "time"

// The settlement calculator lives here as pure functions so the HTTP
// preview path, the committing withdrawal path, and the scheduled
// compounding sweep all share one implementation instead of re-deriving
// the same arithmetic.

// daysPerYear is the divisor used to convert an annual percentage yield
// into a simple daily rate.
const daysPerYear = 365.0

// CompoundOutcome is the result of a single compounding step.
type CompoundOutcome struct {
	YieldEarned  float64 `json:"yield_earned"`
	PointsEarned float64 `json:"points_earned"`
	NewValue     float64 `json:"new_value"`
	ElapsedDays  float64 `json:"elapsed_days"`
}

// Compound computes one compounding step for a position against its
// strategy. It returns false when the position is not yet due for its
// frequency setting; that is a no-op, not an error. The caller is
// responsible for persisting the outcome atomically.
//
// Model: simple daily rate over the elapsed window, no capitalization
// loop within the window.
//
//	dailyRate   = baseAPY / 365 / 100
//	yieldEarned = currentValue * dailyRate * elapsedDays
//	points      = yieldEarned * pointsMultiplier
func Compound(p *Position, s *Strategy, now time.Time) (CompoundOutcome, bool) {
	if !p.IsActive() || !p.CompoundDue(now) {
		return CompoundOutcome{}, false
	}

	elapsedDays := now.Sub(p.LastCompoundAt).Hours() / hoursPerDay
	dailyRate := s.BaseAPY / daysPerYear / 100.0
	yieldEarned := p.CurrentValue * dailyRate * elapsedDays

	return CompoundOutcome{
		YieldEarned:  yieldEarned,
		PointsEarned: yieldEarned * s.PointsMultiplier,
		NewValue:     p.CurrentValue + yieldEarned,
		ElapsedDays:  elapsedDays,
	}, true
}

// WithdrawalQuote is the settlement breakdown returned to the caller
// before (preview) and after (commit) closing a position.
type WithdrawalQuote struct {
	TotalAmount     float64 `json:"total_amount"`
	Principal       float64 `json:"principal"`
	YieldEarned     float64 `json:"yield_earned"`
	PenaltyAmount   float64 `json:"penalty_amount"`
	PenaltyApplied  bool    `json:"penalty_applied"`
	DaysLocked      float64 `json:"days_locked"`
	MinDaysRequired int     `json:"min_days_required"`
}

// QuoteWithdrawal computes the payout for closing a position at the given
// instant. It never mutates the position. The early-withdrawal penalty is
// charged on the full current value, principal included, matching the
// product's settlement rules.
func QuoteWithdrawal(p *Position, now time.Time) WithdrawalQuote {
	daysLocked := p.DaysLocked(now)
	penaltyApplied := daysLocked < float64(p.MinLockDays)

	penaltyAmount := 0.0
	if penaltyApplied {
		penaltyAmount = p.CurrentValue * p.PenaltyPercent
	}

	return WithdrawalQuote{
		TotalAmount:     p.CurrentValue - penaltyAmount,
		Principal:       p.Principal,
		YieldEarned:     p.CurrentValue - p.Principal,
		PenaltyAmount:   penaltyAmount,
		PenaltyApplied:  penaltyApplied,
		DaysLocked:      daysLocked,
		MinDaysRequired: p.MinLockDays,
	}
}
