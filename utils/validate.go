// utils/validate.go
package utils

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks input rejected locally, before any remote call is
// issued.
var ErrValidation = errors.New("validation failed")

// Mint addresses are only watchable when they carry the launchpad suffix.
// This is a product policy filter, not a Solana validity check.
const mintSuffix = "BAGS"

const (
	minAddressLen = 40
	maxAddressLen = 50
)

// ValidateWalletAddress applies the length gate used for registration and
// rotation. No base58 decoding — key material is never validated
// cryptographically on input.
func ValidateWalletAddress(address string) error {
	trimmed := strings.TrimSpace(address)
	if len(trimmed) < minAddressLen || len(trimmed) > maxAddressLen {
		return fmt.Errorf("%w: invalid address length, Solana addresses are ~44 characters", ErrValidation)
	}
	return nil
}

// ValidateWatchMint gates tokens for watchlisting: the wallet-address
// length rule plus the launchpad suffix.
func ValidateWatchMint(mint string) error {
	if err := ValidateWalletAddress(mint); err != nil {
		return err
	}
	if !strings.HasSuffix(strings.TrimSpace(mint), mintSuffix) {
		return fmt.Errorf("%w: only %s token addresses are allowed (must end with %s)", ErrValidation, mintSuffix, mintSuffix)
	}
	return nil
}

// ValidatePrivateKey accepts a base58 string of at least 50 characters or
// a bracketed numeric array form. Minimum length only — the key is not
// decoded or checked against the wallet address.
func ValidatePrivateKey(key string) error {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return fmt.Errorf("%w: private key is required", ErrValidation)
	}
	if len(trimmed) < 50 && !strings.Contains(trimmed, "[") {
		return fmt.Errorf("%w: invalid private key format", ErrValidation)
	}
	return nil
}

// ValidateBuyAmount rejects non-positive SOL spends.
func ValidateBuyAmount(amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: buy amount must be a positive number of SOL", ErrValidation)
	}
	return nil
}
