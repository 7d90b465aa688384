// Package chain reads wallet balances from an EVM RPC endpoint.
package chain

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"nextvault/internal/domain"
)

// balanceOfSelector is the 4-byte selector of ERC-20 balanceOf(address).
var balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}

// Reader implements domain.ChainReader against a JSON-RPC endpoint. It
// reads the vault share token balance plus the sum of configured LP pool
// token balances for a wallet.
type Reader struct {
	client     *ethclient.Client
	vaultToken common.Address
	lpPools    []common.Address
	timeout    time.Duration
}

// NewReader dials the RPC endpoint and returns a Reader. vaultToken is
// the vault share ERC-20; lpPools are LP token contracts whose balances
// count toward the wallet's on-chain position.
func NewReader(rpcURL, vaultToken string, lpPools []string) (*Reader, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("chain: RPC URL is required")
	}
	if !common.IsHexAddress(vaultToken) {
		return nil, fmt.Errorf("chain: invalid vault token address %q", vaultToken)
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}

	pools := make([]common.Address, 0, len(lpPools))
	for _, p := range lpPools {
		if !common.IsHexAddress(p) {
			return nil, fmt.Errorf("chain: invalid LP pool address %q", p)
		}
		pools = append(pools, common.HexToAddress(p))
	}

	return &Reader{
		client:     client,
		vaultToken: common.HexToAddress(vaultToken),
		lpPools:    pools,
		timeout:    10 * time.Second,
	}, nil
}

// Close releases the underlying RPC connection.
func (r *Reader) Close() {
	r.client.Close()
}

// balanceOf performs an eth_call of balanceOf(wallet) on the token.
func (r *Reader) balanceOf(ctx context.Context, token, wallet common.Address) (*big.Int, error) {
	data := make([]byte, 0, 36)
	data = append(data, balanceOfSelector...)
	data = append(data, common.LeftPadBytes(wallet.Bytes(), 32)...)

	out, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: balanceOf %s: %w", token.Hex(), err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("chain: balanceOf %s: empty result", token.Hex())
	}

	return new(big.Int).SetBytes(out), nil
}

// GetOnChainBalances reads the wallet's vault share balance and the sum
// of its LP pool token balances.
func (r *Reader) GetOnChainBalances(ctx context.Context, walletAddress string) (*domain.OnChainBalances, error) {
	if !common.IsHexAddress(walletAddress) {
		return nil, fmt.Errorf("chain: %w: invalid wallet address %q", domain.ErrInvalidInput, walletAddress)
	}
	wallet := common.HexToAddress(walletAddress)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	vaultBal, err := r.balanceOf(ctx, r.vaultToken, wallet)
	if err != nil {
		return nil, err
	}

	lpBal := new(big.Int)
	for _, pool := range r.lpPools {
		bal, err := r.balanceOf(ctx, pool, wallet)
		if err != nil {
			// One unreadable pool should not zero out the whole summary.
			log.Printf("WARNING: LP pool %s balance read failed: %v", pool.Hex(), err)
			continue
		}
		lpBal.Add(lpBal, bal)
	}

	return &domain.OnChainBalances{
		WalletAddress:  wallet.Hex(),
		VaultBalance:   vaultBal.String(),
		LPBalance:      lpBal.String(),
		LendingBalance: "0",
	}, nil
}

// Compile-time interface check.
var _ domain.ChainReader = (*Reader)(nil)
