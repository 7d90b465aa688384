// Package crypto verifies EVM wallet signatures for wallet-based login.
package crypto

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// personalHash hashes a message the way eth_sign / personal_sign does,
// with the EIP-191 prefix:
//
//	keccak256("\x19Ethereum Signed Message:\n" || len(message) || message)
func personalHash(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return ethcrypto.Keccak256([]byte(prefixed))
}

// IsValidAddress reports whether the string is a well-formed hex EVM
// address.
func IsValidAddress(address string) bool {
	return common.IsHexAddress(address)
}

// RecoverPersonalSigner recovers the checksummed address that produced a
// personal_sign signature over the given message. The signature is the
// usual 65-byte r || s || v hex string.
func RecoverPersonalSigner(message, signatureHex string) (string, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(signatureHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("crypto: invalid signature hex: %w", err)
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("crypto: signature must be 65 bytes, got %d", len(sig))
	}

	// Wallets return v in {27,28}; go-ethereum expects {0,1}.
	if sig[64] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[64] -= 27
	}

	pubkey, err := ethcrypto.SigToPub(personalHash(message), sig)
	if err != nil {
		return "", fmt.Errorf("crypto: recover pubkey: %w", err)
	}

	return ethcrypto.PubkeyToAddress(*pubkey).Hex(), nil
}

// VerifyPersonalSignature checks that signatureHex over message was
// produced by the given wallet address.
func VerifyPersonalSignature(address, message, signatureHex string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("crypto: invalid wallet address %q", address)
	}

	recovered, err := RecoverPersonalSigner(message, signatureHex)
	if err != nil {
		return err
	}

	if common.HexToAddress(recovered) != common.HexToAddress(address) {
		return fmt.Errorf("crypto: signature does not match address %s", address)
	}

	return nil
}
