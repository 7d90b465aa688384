package dto

// DepositRequest represents the deposit request payload
type DepositRequest struct {
	StrategyID string  `json:"strategy_id" validate:"required"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	TxHash     *string `json:"tx_hash,omitempty"`
}

// AutoCompoundRequest toggles scheduled compounding for a position
type AutoCompoundRequest struct {
	Enabled   bool   `json:"enabled"`
	Frequency string `json:"frequency"` // "daily", "weekly" or "monthly"
}

// StrategyRequest creates or updates a strategy (admin)
type StrategyRequest struct {
	Name             string  `json:"name" validate:"required"`
	Protocol         string  `json:"protocol"`
	Description      string  `json:"description"`
	BaseAPY          float64 `json:"base_apy"`
	PointsMultiplier float64 `json:"points_multiplier"`
	MinLockDays      int     `json:"min_lock_days"`
	PenaltyPercent   float64 `json:"early_withdrawal_penalty_percent"`
	MinDeposit       float64 `json:"min_deposit"`
	RiskLevel        string  `json:"risk_level"`
	IsActive         bool    `json:"is_active"`
}
