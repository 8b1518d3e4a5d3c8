package services

import (
	"strings"
	"testing"

	"sniper-console/crypto"
	"sniper-console/models"
	"sniper-console/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "4K9sV2mPqXoTn8rJhGfDcWbYeAzLu5iNkE3tH7xQpMaS4K9sV2"

func seedCode(t *testing.T, svc *WalletService, code string) {
	t.Helper()
	require.NoError(t, svc.DB.Create(&models.SignupCode{Code: code}).Error)
}

func TestRegisterStoresEnvelopeAndDefaultRows(t *testing.T) {
	db := testDB(t)
	svc := NewWalletService(db)
	seedCode(t, svc, "INVITE-1")

	address := testAddress("wallet1")
	require.NoError(t, svc.Register("principal-1", address, testKey, "INVITE-1"))

	var user models.User
	require.NoError(t, db.Where("wallet_address = ?", address).First(&user).Error)
	require.NotNil(t, user.EncryptedPrivateKey)
	assert.True(t, crypto.IsEncrypted(*user.EncryptedPrivateKey))

	// settings and status rows exist with defaults
	var settings models.UserSettings
	require.NoError(t, db.Where("wallet_address = ?", address).First(&settings).Error)
	assert.Equal(t, 15.0, settings.Slippage)

	var status models.SniperStatus
	require.NoError(t, db.Where("wallet_address = ?", address).First(&status).Error)
	assert.False(t, status.IsRunning)

	// code is redeemed
	var code models.SignupCode
	require.NoError(t, db.Where("code = ?", "INVITE-1").First(&code).Error)
	assert.True(t, code.IsUsed)
	require.NotNil(t, code.UsedBy)
	assert.Equal(t, address, *code.UsedBy)
}

func TestRegisterRejectsBadCodes(t *testing.T) {
	db := testDB(t)
	svc := NewWalletService(db)
	seedCode(t, svc, "INVITE-1")

	address := testAddress("wallet1")
	require.NoError(t, svc.Register("principal-1", address, testKey, "INVITE-1"))

	// reuse
	err := svc.Register("principal-2", testAddress("wallet2"), testKey, "INVITE-1")
	assert.ErrorIs(t, err, ErrCodeUsed)

	// unknown
	err = svc.Register("principal-2", testAddress("wallet2"), testKey, "NOPE")
	assert.ErrorIs(t, err, ErrCodeInvalid)
}

func TestRegisterTwiceKeepsExactlyOneWallet(t *testing.T) {
	db := testDB(t)
	svc := NewWalletService(db)
	seedCode(t, svc, "INVITE-1")
	seedCode(t, svc, "INVITE-2")

	first := testAddress("wallet1")
	require.NoError(t, svc.Register("principal-1", first, testKey, "INVITE-1"))

	// a second signup for the same principal is turned away before the
	// code is burned — replacing a wallet goes through Rotate
	err := svc.Register("principal-1", testAddress("wallet2"), testKey, "INVITE-2")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	var count int64
	db.Model(&models.User{}).Where("principal_id = ?", "principal-1").Count(&count)
	assert.EqualValues(t, 1, count)

	user, err := svc.GetByPrincipal("principal-1")
	require.NoError(t, err)
	assert.Equal(t, first, user.WalletAddress)

	var code models.SignupCode
	require.NoError(t, db.Where("code = ?", "INVITE-2").First(&code).Error)
	assert.False(t, code.IsUsed)
}

func TestRegisterCannotClaimOwnedAddress(t *testing.T) {
	db := testDB(t)
	svc := NewWalletService(db)
	seedCode(t, svc, "INVITE-1")
	seedCode(t, svc, "INVITE-2")

	address := testAddress("shared")
	require.NoError(t, svc.Register("principal-1", address, testKey, "INVITE-1"))

	// the same address for a different principal hits the primary key
	// instead of silently rebinding the row
	err := svc.Register("principal-2", address, testKey, "INVITE-2")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyRegistered)

	user, err := svc.GetByPrincipal("principal-1")
	require.NoError(t, err)
	assert.Equal(t, address, user.WalletAddress)

	_, err = svc.GetByPrincipal("principal-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterValidatesInput(t *testing.T) {
	db := testDB(t)
	svc := NewWalletService(db)
	seedCode(t, svc, "INVITE-1")

	err := svc.Register("principal-1", "tooshort", testKey, "INVITE-1")
	assert.ErrorIs(t, err, utils.ErrValidation)

	err = svc.Register("principal-1", testAddress("wallet1"), "short", "INVITE-1")
	assert.ErrorIs(t, err, utils.ErrValidation)

	// nothing written on validation failure
	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Zero(t, count)
}

func TestStoreAndRevealRoundTrip(t *testing.T) {
	db := testDB(t)
	svc := NewWalletService(db)
	seedCode(t, svc, "INVITE-1")

	address := testAddress("wallet1")
	require.NoError(t, svc.Register("principal-1", address, testKey, "INVITE-1"))

	replacement := strings.Repeat("R", 60)
	require.NoError(t, svc.StoreKey(address, replacement))

	revealed, err := svc.RevealKey(address)
	require.NoError(t, err)
	assert.Equal(t, replacement, revealed)
}

func TestRevealHandlesLegacyAndMissing(t *testing.T) {
	db := testDB(t)
	svc := NewWalletService(db)

	// legacy plaintext in the column passes through unchanged
	legacy := "legacy-plaintext-key-material"
	address := testAddress("legacy")
	require.NoError(t, db.Create(&models.User{
		WalletAddress:       address,
		EncryptedPrivateKey: &legacy,
	}).Error)

	revealed, err := svc.RevealKey(address)
	require.NoError(t, err)
	assert.Equal(t, legacy, revealed)

	// missing row is a hard stop
	_, err = svc.RevealKey(testAddress("absent"))
	assert.ErrorIs(t, err, ErrNotFound)

	// row without key material is also NotFound
	require.NoError(t, db.Create(&models.User{WalletAddress: testAddress("nokey")}).Error)
	_, err = svc.RevealKey(testAddress("nokey"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRevealSurfacesIntegrityFailure(t *testing.T) {
	db := testDB(t)
	svc := NewWalletService(db)

	corrupted := crypto.EnvelopePrefix + strings.Repeat("ab", 12) + ":deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
	address := testAddress("corrupt")
	require.NoError(t, db.Create(&models.User{
		WalletAddress:       address,
		EncryptedPrivateKey: &corrupted,
	}).Error)

	_, err := svc.RevealKey(address)
	assert.ErrorIs(t, err, crypto.ErrIntegrity)
}

func TestRotateReplacesWallet(t *testing.T) {
	db := testDB(t)
	svc := NewWalletService(db)
	seedCode(t, svc, "INVITE-1")

	oldAddress := testAddress("old")
	require.NoError(t, svc.Register("principal-1", oldAddress, testKey, "INVITE-1"))

	newAddress := testAddress("new")
	require.NoError(t, svc.Rotate("principal-1", newAddress, testKey))

	// exactly one live wallet for the principal, and it is the new one
	var users []models.User
	require.NoError(t, db.Where("principal_id = ?", "principal-1").Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, newAddress, users[0].WalletAddress)

	// fresh default rows for the new address
	var settings models.UserSettings
	require.NoError(t, db.Where("wallet_address = ?", newAddress).First(&settings).Error)
	assert.Equal(t, 15.0, settings.Slippage)

	var status models.SniperStatus
	require.NoError(t, db.Where("wallet_address = ?", newAddress).First(&status).Error)
	assert.False(t, status.IsRunning)
}

func TestRotateIsIdempotentWithNoExistingWallet(t *testing.T) {
	db := testDB(t)
	svc := NewWalletService(db)

	newAddress := testAddress("fresh")
	require.NoError(t, svc.Rotate("principal-1", newAddress, testKey))

	var users []models.User
	require.NoError(t, db.Where("principal_id = ?", "principal-1").Find(&users).Error)
	assert.Len(t, users, 1)
}

func TestRotateResetsSettingsToDefaults(t *testing.T) {
	db := testDB(t)
	svc := NewWalletService(db)

	address := testAddress("tuned")
	require.NoError(t, svc.Rotate("principal-1", address, testKey))

	// operator tunes the wallet, then rotates to the same address from a
	// different principal history — settings must come back as defaults,
	// never carried over
	require.NoError(t, db.Model(&models.UserSettings{}).
		Where("wallet_address = ?", address).
		Update("slippage", 40).Error)

	require.NoError(t, svc.Rotate("principal-1", address, testKey))

	var settings models.UserSettings
	require.NoError(t, db.Where("wallet_address = ?", address).First(&settings).Error)
	assert.Equal(t, 15.0, settings.Slippage)
}

func TestRotateFailsRetryablyWhenInsertConflicts(t *testing.T) {
	db := testDB(t)
	svc := NewWalletService(db)

	// the target address is already owned by someone else, so step 2's
	// insert hits the primary key
	taken := testAddress("taken")
	otherPrincipal := "principal-other"
	require.NoError(t, db.Create(&models.User{
		WalletAddress: taken,
		PrincipalID:   &otherPrincipal,
	}).Error)

	seedCode(t, svc, "INVITE-1")
	mine := testAddress("mine")
	require.NoError(t, svc.Register("principal-1", mine, testKey, "INVITE-1"))

	err := svc.Rotate("principal-1", taken, testKey)
	assert.ErrorIs(t, err, ErrRotationFailed)

	// step 1 already deleted the old wallet: the principal now has none,
	// which is exactly what ErrRotationFailed (retryable) reports
	var count int64
	db.Model(&models.User{}).Where("principal_id = ?", "principal-1").Count(&count)
	assert.Zero(t, count)
}

func TestGetByPrincipal(t *testing.T) {
	db := testDB(t)
	svc := NewWalletService(db)

	_, err := svc.GetByPrincipal("principal-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Rotate("principal-1", testAddress("wallet1"), testKey))
	user, err := svc.GetByPrincipal("principal-1")
	require.NoError(t, err)
	assert.Equal(t, testAddress("wallet1"), user.WalletAddress)
}

func TestMarkCustodialWritesRawSentinel(t *testing.T) {
	db := testDB(t)
	svc := NewWalletService(db)

	address := testAddress("custodial")
	require.NoError(t, db.Create(&models.User{WalletAddress: address}).Error)
	require.NoError(t, svc.MarkCustodial(address))

	var user models.User
	require.NoError(t, db.Where("wallet_address = ?", address).First(&user).Error)
	require.NotNil(t, user.EncryptedPrivateKey)
	// stored verbatim so the executor can compare it, and it still
	// round-trips through the legacy path of RevealKey
	assert.Equal(t, CustodialSentinel, *user.EncryptedPrivateKey)

	revealed, err := svc.RevealKey(address)
	require.NoError(t, err)
	assert.Equal(t, CustodialSentinel, revealed)
}
