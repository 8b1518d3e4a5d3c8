// services/sniper_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"sniper-console/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SniperService owns the STOPPED/RUNNING state machine persisted in the
// sniper_status table.
type SniperService struct {
	DB       *gorm.DB
	Wallets  *WalletService
	Activity *ActivityService
}

func NewSniperService(db *gorm.DB, wallets *WalletService, activity *ActivityService) *SniperService {
	return &SniperService{DB: db, Wallets: wallets, Activity: activity}
}

// Get returns the status row for a wallet. A missing row reads as a
// default stopped status rather than an error, so a partially-completed
// rotation still yields a usable account.
func (s *SniperService) Get(address string) (models.SniperStatus, error) {
	var status models.SniperStatus
	err := s.DB.Where("wallet_address = ?", address).First(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.SniperStatus{WalletAddress: address, IsRunning: false}, nil
	}
	if err != nil {
		return models.SniperStatus{}, fmt.Errorf("failed to load sniper status: %w", err)
	}
	return status, nil
}

// Start transitions STOPPED -> RUNNING. The wallet must have key material
// stored; custodial flows write the sentinel first (see the session
// engine's toggle). Sets started_at and last_heartbeat to now and appends
// a SUCCESS activity record.
func (s *SniperService) Start(address string) error {
	hasKey, err := s.Wallets.HasKey(address)
	if err != nil {
		return err
	}
	if !hasKey {
		return ErrNoKey
	}

	now := time.Now().UTC()
	status := models.SniperStatus{
		WalletAddress: address,
		IsRunning:     true,
		StartedAt:     &now,
		LastHeartbeat: now,
	}
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wallet_address"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_running", "started_at", "last_heartbeat"}),
	}).Create(&status).Error; err != nil {
		return fmt.Errorf("failed to start sniper: %w", err)
	}

	s.Activity.Log(address, models.LogSuccess, "Sniper started - monitoring for claims...", nil)
	return nil
}

// Stop transitions RUNNING -> STOPPED, always permitted regardless of
// heartbeat freshness. Stopping an already-stopped sniper is a no-op and
// appends nothing.
func (s *SniperService) Stop(address string) error {
	current, err := s.Get(address)
	if err != nil {
		return err
	}
	if !current.IsRunning {
		return nil
	}

	now := time.Now().UTC()
	if err := s.DB.Model(&models.SniperStatus{}).
		Where("wallet_address = ?", address).
		Updates(map[string]any{
			"is_running": false,
			"stopped_at": now,
		}).Error; err != nil {
		return fmt.Errorf("failed to stop sniper: %w", err)
	}

	s.Activity.Log(address, models.LogInfo, "Sniper stopped", nil)
	return nil
}

// Heartbeat advances last_heartbeat. Called by the external executor
// while it is actively running a wallet.
func (s *SniperService) Heartbeat(address string) error {
	if err := s.DB.Model(&models.SniperStatus{}).
		Where("wallet_address = ?", address).
		Update("last_heartbeat", time.Now().UTC()).Error; err != nil {
		return fmt.Errorf("failed to update heartbeat: %w", err)
	}
	return nil
}

// ActiveWallets lists wallets whose sniper is running — the set the
// executor polls for work.
func (s *SniperService) ActiveWallets() ([]string, error) {
	var addresses []string
	if err := s.DB.Model(&models.SniperStatus{}).
		Where("is_running = ?", true).
		Pluck("wallet_address", &addresses).Error; err != nil {
		return nil, fmt.Errorf("failed to list active wallets: %w", err)
	}
	return addresses, nil
}

// StaleRunning returns running status rows whose heartbeat is older than
// the threshold. Detection only — whether anything is done about it is
// the heartbeat worker's configured policy.
func (s *SniperService) StaleRunning(olderThan time.Duration) ([]models.SniperStatus, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	var stale []models.SniperStatus
	if err := s.DB.
		Where("is_running = ? AND last_heartbeat < ?", true, cutoff).
		Find(&stale).Error; err != nil {
		return nil, fmt.Errorf("failed to query stale heartbeats: %w", err)
	}
	return stale, nil
}
