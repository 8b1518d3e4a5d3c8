// services/settings_service.go
package services

import (
	"errors"
	"fmt"

	"sniper-console/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsService reads and writes per-wallet trading settings.
type SettingsService struct {
	DB *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{DB: db}
}

// Get loads settings for a wallet. A missing row reads as defaults — a
// rotation that failed after inserting the wallet still yields a usable,
// default-configured account.
func (s *SettingsService) Get(address string) (models.UserSettings, error) {
	var settings models.UserSettings
	err := s.DB.Where("wallet_address = ?", address).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultSettings(address), nil
	}
	if err != nil {
		return models.UserSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// Save upserts the whole settings row, last writer wins.
func (s *SettingsService) Save(settings models.UserSettings) error {
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wallet_address"}},
		UpdateAll: true,
	}).Create(&settings).Error; err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
