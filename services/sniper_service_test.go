package services

import (
	"testing"
	"time"

	"sniper-console/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSniperFixture(t *testing.T) (*SniperService, string) {
	t.Helper()
	db := testDB(t)
	wallets := NewWalletService(db)
	activity := NewActivityService(db)
	sniper := NewSniperService(db, wallets, activity)

	address := testAddress("sniper")
	sealed := "stored-key-material" // presence is what Start checks, not shape
	require.NoError(t, db.Create(&models.User{
		WalletAddress:       address,
		EncryptedPrivateKey: &sealed,
	}).Error)
	return sniper, address
}

func countLogs(t *testing.T, sniper *SniperService, address, logType string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, sniper.DB.Model(&models.ActivityLog{}).
		Where("wallet_address = ? AND log_type = ?", address, logType).
		Count(&count).Error)
	return count
}

func TestStartTransitionsToRunning(t *testing.T) {
	sniper, address := newSniperFixture(t)

	require.NoError(t, sniper.Start(address))

	status, err := sniper.Get(address)
	require.NoError(t, err)
	assert.True(t, status.IsRunning)
	require.NotNil(t, status.StartedAt)
	assert.WithinDuration(t, time.Now().UTC(), *status.StartedAt, 5*time.Second)
	assert.WithinDuration(t, time.Now().UTC(), status.LastHeartbeat, 5*time.Second)

	assert.EqualValues(t, 1, countLogs(t, sniper, address, models.LogSuccess))
}

func TestStartRequiresKeyMaterial(t *testing.T) {
	db := testDB(t)
	wallets := NewWalletService(db)
	sniper := NewSniperService(db, wallets, NewActivityService(db))

	address := testAddress("keyless")
	require.NoError(t, db.Create(&models.User{WalletAddress: address}).Error)

	assert.ErrorIs(t, sniper.Start(address), ErrNoKey)

	status, err := sniper.Get(address)
	require.NoError(t, err)
	assert.False(t, status.IsRunning)
}

func TestStopTransitionsToStopped(t *testing.T) {
	sniper, address := newSniperFixture(t)
	require.NoError(t, sniper.Start(address))

	require.NoError(t, sniper.Stop(address))

	status, err := sniper.Get(address)
	require.NoError(t, err)
	assert.False(t, status.IsRunning)
	require.NotNil(t, status.StoppedAt)
	require.NotNil(t, status.StartedAt)
	assert.True(t, !status.StoppedAt.Before(*status.StartedAt))

	assert.EqualValues(t, 1, countLogs(t, sniper, address, models.LogInfo))
}

func TestStopTwiceIsNoOp(t *testing.T) {
	sniper, address := newSniperFixture(t)
	require.NoError(t, sniper.Start(address))
	require.NoError(t, sniper.Stop(address))

	require.NoError(t, sniper.Stop(address))

	// still stopped, no duplicate INFO record
	status, err := sniper.Get(address)
	require.NoError(t, err)
	assert.False(t, status.IsRunning)
	assert.EqualValues(t, 1, countLogs(t, sniper, address, models.LogInfo))
}

func TestGetMissingRowReadsAsStoppedDefaults(t *testing.T) {
	db := testDB(t)
	sniper := NewSniperService(db, NewWalletService(db), NewActivityService(db))

	status, err := sniper.Get(testAddress("norow"))
	require.NoError(t, err)
	assert.False(t, status.IsRunning)
	assert.Nil(t, status.StartedAt)
	assert.Nil(t, status.StoppedAt)
}

func TestHeartbeatAdvancesTimestamp(t *testing.T) {
	sniper, address := newSniperFixture(t)
	require.NoError(t, sniper.Start(address))

	before, err := sniper.Get(address)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, sniper.Heartbeat(address))

	after, err := sniper.Get(address)
	require.NoError(t, err)
	assert.True(t, after.LastHeartbeat.After(before.LastHeartbeat))
}

func TestActiveWalletsListsOnlyRunning(t *testing.T) {
	sniper, address := newSniperFixture(t)

	other := testAddress("idle")
	sealed := "stored-key-material"
	require.NoError(t, sniper.DB.Create(&models.User{
		WalletAddress:       other,
		EncryptedPrivateKey: &sealed,
	}).Error)

	require.NoError(t, sniper.Start(address))

	active, err := sniper.ActiveWallets()
	require.NoError(t, err)
	assert.Equal(t, []string{address}, active)
}

func TestStaleRunningDetection(t *testing.T) {
	sniper, address := newSniperFixture(t)
	require.NoError(t, sniper.Start(address))

	// fresh heartbeat: nothing stale
	stale, err := sniper.StaleRunning(time.Minute)
	require.NoError(t, err)
	assert.Empty(t, stale)

	// age the heartbeat past the threshold
	old := time.Now().UTC().Add(-2 * time.Minute)
	require.NoError(t, sniper.DB.Model(&models.SniperStatus{}).
		Where("wallet_address = ?", address).
		Update("last_heartbeat", old).Error)

	stale, err = sniper.StaleRunning(time.Minute)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, address, stale[0].WalletAddress)
}
