// services/errors.go
package services

import "errors"

var (
	// ErrNotFound means no row exists for the key. Read paths for
	// settings/status translate this into defaults; RevealKey treats it
	// as a hard stop.
	ErrNotFound = errors.New("not found")

	// ErrRotationFailed means the new wallet row was never written: the
	// principal currently has no wallet and the whole rotation should be
	// retried by the user.
	ErrRotationFailed = errors.New("wallet rotation failed — no wallet is currently linked, please retry")

	// ErrRotationIncomplete means the wallet row committed but a
	// settings/status upsert did not. The wallet is usable; missing rows
	// read as defaults.
	ErrRotationIncomplete = errors.New("wallet rotated but default configuration could not be written")

	// ErrAlreadyRegistered means the principal already has a live wallet.
	// Replacing it goes through rotation, never through a second signup.
	ErrAlreadyRegistered = errors.New("a wallet is already linked to this account — use wallet rotation to replace it")

	// ErrCodeInvalid / ErrCodeUsed gate onboarding.
	ErrCodeInvalid = errors.New("invalid or non-existent signup code")
	ErrCodeUsed    = errors.New("this signup code has already been used")

	// ErrNoKey means a sniper start was attempted for a wallet without
	// any stored key material.
	ErrNoKey = errors.New("no private key is provisioned for this wallet")
)
