// services/wallet_service.go
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sniper-console/crypto"
	"sniper-console/models"
	"sniper-console/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CustodialSentinel is stored in place of an envelope when custody is
// delegated to the managed signer instead of a user-supplied key. The
// executor checks for it verbatim, so it is written raw, never encrypted.
const CustodialSentinel = "privy_managed"

// WalletService is the only component that reads or writes the
// encrypted_private_key column. Everything else goes through StoreKey /
// RevealKey.
type WalletService struct {
	DB *gorm.DB
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{DB: db}
}

// GetByPrincipal returns the single live wallet for an authenticated
// principal, or ErrNotFound.
func (s *WalletService) GetByPrincipal(principalID string) (*models.User, error) {
	var user models.User
	err := s.DB.Where("principal_id = ?", principalID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	return &user, nil
}

// StoreKey encrypts a plaintext private key and writes the envelope onto
// the wallet row, replacing any prior value.
func (s *WalletService) StoreKey(address, plaintextKey string) error {
	sealed, err := crypto.Encrypt(plaintextKey)
	if err != nil {
		return err
	}
	res := s.DB.Model(&models.User{}).
		Where("wallet_address = ?", address).
		Update("encrypted_private_key", sealed)
	if res.Error != nil {
		return fmt.Errorf("failed to store encrypted key: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RevealKey reads and decrypts the stored key. ErrNotFound when the row
// or the key is absent, crypto.ErrIntegrity when the envelope fails
// authentication — in that case the key is unrecoverable and must never
// be silently substituted.
func (s *WalletService) RevealKey(address string) (string, error) {
	var user models.User
	err := s.DB.Where("wallet_address = ?", address).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load wallet: %w", err)
	}
	if user.EncryptedPrivateKey == nil || *user.EncryptedPrivateKey == "" {
		return "", ErrNotFound
	}
	return crypto.Decrypt(*user.EncryptedPrivateKey)
}

// HasKey reports whether any key material (envelope, legacy plaintext or
// custodial sentinel) is stored for the wallet.
func (s *WalletService) HasKey(address string) (bool, error) {
	var user models.User
	err := s.DB.Select("encrypted_private_key").
		Where("wallet_address = ?", address).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to load wallet: %w", err)
	}
	return user.EncryptedPrivateKey != nil && *user.EncryptedPrivateKey != "", nil
}

// MarkCustodial writes the custodial sentinel for wallets whose signing
// is delegated to the managed signer.
func (s *WalletService) MarkCustodial(address string) error {
	res := s.DB.Model(&models.User{}).
		Where("wallet_address = ?", address).
		Update("encrypted_private_key", CustodialSentinel)
	if res.Error != nil {
		return fmt.Errorf("failed to mark wallet custodial: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Register onboards a principal's first wallet: redeem the signup code,
// then write the wallet row with the encrypted key and its default
// settings and status rows. A principal that already holds a wallet is
// turned away (ErrAlreadyRegistered) before the code is consumed —
// replacing a wallet is Rotate's job, and the register path must never
// leave a second live row for the same principal. The insert is a plain
// Create so an address already owned by someone else surfaces as a
// conflict instead of being silently rebound.
func (s *WalletService) Register(principalID, address, plaintextKey, code string) error {
	address = strings.TrimSpace(address)
	if err := utils.ValidateWalletAddress(address); err != nil {
		return err
	}
	if err := utils.ValidatePrivateKey(plaintextKey); err != nil {
		return err
	}

	if _, err := s.GetByPrincipal(principalID); err == nil {
		return ErrAlreadyRegistered
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if err := s.redeemCode(code, address); err != nil {
		return err
	}

	sealed, err := crypto.Encrypt(strings.TrimSpace(plaintextKey))
	if err != nil {
		return err
	}

	user := models.User{
		WalletAddress:       address,
		EncryptedPrivateKey: &sealed,
		PrincipalID:         &principalID,
		IsActive:            true,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		return fmt.Errorf("failed to register wallet: %w", err)
	}

	return s.writeDefaultRows(address)
}

// Rotate replaces the wallet bound to a principal. Ordered remote steps
// with no distributed transaction:
//
//  1. delete any existing wallet row for the principal (idempotent)
//  2. insert the new wallet row with the freshly sealed key
//  3. upsert default settings for the new address (clean slate, never
//     copied from the old wallet)
//  4. upsert a stopped status row
//
// A step-2 failure leaves the principal with no wallet and returns
// ErrRotationFailed (retryable). Step-3/4 failures return
// ErrRotationIncomplete: the wallet is live and missing rows read as
// defaults. Watch entries for the old address are orphaned by design and
// cleaned up by the background sweep.
func (s *WalletService) Rotate(principalID, newAddress, newPlaintextKey string) error {
	newAddress = strings.TrimSpace(newAddress)
	if err := utils.ValidateWalletAddress(newAddress); err != nil {
		return err
	}
	if err := utils.ValidatePrivateKey(newPlaintextKey); err != nil {
		return err
	}

	// Seal before touching any row so a missing ENCRYPTION_KEY aborts
	// with everything intact.
	sealed, err := crypto.Encrypt(strings.TrimSpace(newPlaintextKey))
	if err != nil {
		return err
	}

	// Step 1: drop the old wallet. No-op when the principal has none.
	if err := s.DB.Where("principal_id = ?", principalID).
		Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("failed to remove previous wallet: %w", err)
	}

	// Step 2: insert the replacement. Failure here means zero wallets.
	user := models.User{
		WalletAddress:       newAddress,
		EncryptedPrivateKey: &sealed,
		PrincipalID:         &principalID,
		IsActive:            true,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrRotationFailed, err)
	}

	// Steps 3-4: fresh configuration rows.
	if err := s.writeDefaultRows(newAddress); err != nil {
		return fmt.Errorf("%w: %v", ErrRotationIncomplete, err)
	}
	return nil
}

// writeDefaultRows upserts the settings and status rows that accompany a
// wallet row, both keyed on wallet_address.
func (s *WalletService) writeDefaultRows(address string) error {
	settings := models.DefaultSettings(address)
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wallet_address"}},
		DoUpdates: clause.AssignmentColumns([]string{"slippage", "priority_fee", "bribe", "auto_sell", "auto_sell_multiplier", "max_buy_per_token", "telegram_user_id"}),
	}).Create(&settings).Error; err != nil {
		return fmt.Errorf("settings upsert failed: %w", err)
	}

	status := models.SniperStatus{
		WalletAddress: address,
		IsRunning:     false,
		LastHeartbeat: time.Now().UTC(),
	}
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wallet_address"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_running"}),
	}).Create(&status).Error; err != nil {
		return fmt.Errorf("status upsert failed: %w", err)
	}
	return nil
}

// redeemCode marks a signup code used. The WHERE clause re-checks
// is_used=false so two racing registrations cannot both claim it.
func (s *WalletService) redeemCode(code, usedBy string) error {
	var signup models.SignupCode
	err := s.DB.Where("code = ?", code).First(&signup).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCodeInvalid
	}
	if err != nil {
		return fmt.Errorf("failed to verify signup code: %w", err)
	}
	if signup.IsUsed {
		return ErrCodeUsed
	}

	now := time.Now().UTC()
	res := s.DB.Model(&models.SignupCode{}).
		Where("code = ? AND is_used = ?", code, false).
		Updates(map[string]any{
			"is_used": true,
			"used_by": usedBy,
			"used_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to redeem signup code: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race to another registration.
		return ErrCodeUsed
	}
	return nil
}
