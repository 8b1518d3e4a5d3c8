package services

import (
	"testing"

	"sniper-console/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMissingRowReadsAsDefaults(t *testing.T) {
	db := testDB(t)
	svc := NewSettingsService(db)

	// the state a rotation that died at step 3 leaves behind
	address := testAddress("partial")
	settings, err := svc.Get(address)
	require.NoError(t, err)
	assert.Equal(t, address, settings.WalletAddress)
	assert.Equal(t, 15.0, settings.Slippage)
	assert.Equal(t, 0.0001, settings.PriorityFee)
	assert.Equal(t, 0.0001, settings.Bribe)
	assert.Nil(t, settings.TelegramUserID)
}

func TestSaveUpsertsWholeRow(t *testing.T) {
	db := testDB(t)
	svc := NewSettingsService(db)
	address := testAddress("tuner")

	telegram := "12345678"
	require.NoError(t, svc.Save(models.UserSettings{
		WalletAddress:  address,
		Slippage:       25,
		PriorityFee:    0.001,
		Bribe:          0.0005,
		TelegramUserID: &telegram,
	}))

	saved, err := svc.Get(address)
	require.NoError(t, err)
	assert.Equal(t, 25.0, saved.Slippage)
	require.NotNil(t, saved.TelegramUserID)
	assert.Equal(t, telegram, *saved.TelegramUserID)

	// second save replaces the row wholesale — last writer wins
	require.NoError(t, svc.Save(models.UserSettings{
		WalletAddress: address,
		Slippage:      10,
		PriorityFee:   0.0001,
		Bribe:         0.0001,
	}))

	saved, err = svc.Get(address)
	require.NoError(t, err)
	assert.Equal(t, 10.0, saved.Slippage)
	assert.Nil(t, saved.TelegramUserID)
}
