package domain

// PlatformStats are platform-wide totals shown on the admin surface.
type PlatformStats struct {
	TotalUsers      int     `json:"total_users"`
	ActivePositions int     `json:"active_positions"`
	TotalValue      float64 `json:"total_value"`
	TotalPrincipal  float64 `json:"total_principal"`
	TotalPoints     float64 `json:"total_points"`
}

// Portfolio aggregates a user's positions with optional on-chain wallet
// balances.
type Portfolio struct {
	TotalPrincipal  float64          `json:"total_principal"`
	TotalValue      float64          `json:"total_value"`
	TotalYield      float64          `json:"total_yield"`
	TotalPoints     float64          `json:"total_points"`
	ActivePositions int              `json:"active_positions"`
	Positions       []*Position      `json:"positions"`
	OnChain         *OnChainBalances `json:"on_chain,omitempty"`
}
