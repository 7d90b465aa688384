package domain

import "context"

// OnChainBalances aggregates a wallet's on-chain holdings relevant to
// the platform, denominated in raw token units (wei-scale).
type OnChainBalances struct {
	WalletAddress  string `json:"wallet_address"`
	VaultBalance   string `json:"vault_balance"`
	LPBalance      string `json:"lp_balance"`
	LendingBalance string `json:"lending_balance"`
}

// ChainReader reads wallet balances from an EVM RPC endpoint.
type ChainReader interface {
	// GetOnChainBalances reads the vault share token balance and the
	// sum of LP pool token balances for a wallet
	GetOnChainBalances(ctx context.Context, walletAddress string) (*OnChainBalances, error)
}
