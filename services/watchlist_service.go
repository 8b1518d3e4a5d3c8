// services/watchlist_service.go
package services

import (
	"fmt"
	"strings"
	"time"

	"sniper-console/models"
	"sniper-console/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WatchlistService manages the tokens a wallet has asked the executor to
// watch. Rows are unique on (wallet_address, mint_address); removal is a
// soft delete via is_active.
type WatchlistService struct {
	DB       *gorm.DB
	Activity *ActivityService
}

func NewWatchlistService(db *gorm.DB, activity *ActivityService) *WatchlistService {
	return &WatchlistService{DB: db, Activity: activity}
}

// Active returns the live watchlist, newest first.
func (s *WatchlistService) Active(address string) ([]models.WatchlistItem, error) {
	var items []models.WatchlistItem
	if err := s.DB.
		Where("wallet_address = ? AND is_active = ?", address, true).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch watchlist: %w", err)
	}
	return items, nil
}

// Add validates the mint against the watch policy and upserts the entry.
// Re-adding a previously removed mint reactivates the same row with the
// new buy amount.
func (s *WatchlistService) Add(address, mint string, buyAmount float64) (*models.WatchlistItem, error) {
	mint = strings.TrimSpace(mint)
	if err := utils.ValidateWatchMint(mint); err != nil {
		return nil, err
	}
	if err := utils.ValidateBuyAmount(buyAmount); err != nil {
		return nil, err
	}

	item := models.WatchlistItem{
		ID:            uuid.NewString(),
		WalletAddress: address,
		MintAddress:   mint,
		BuyAmount:     buyAmount,
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wallet_address"}, {Name: "mint_address"}},
		DoUpdates: clause.AssignmentColumns([]string{"buy_amount", "is_active"}),
	}).Create(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to add to watchlist: %w", err)
	}

	s.Activity.Log(address, models.LogInfo,
		fmt.Sprintf("Added %s... to watchlist with %g SOL", shortMint(mint), buyAmount), nil)
	return &item, nil
}

// Remove soft-deletes the entry so the executor stops considering it.
func (s *WatchlistService) Remove(address, mint string) error {
	if err := s.DB.Model(&models.WatchlistItem{}).
		Where("wallet_address = ? AND mint_address = ?", address, mint).
		Update("is_active", false).Error; err != nil {
		return fmt.Errorf("failed to remove from watchlist: %w", err)
	}

	s.Activity.Log(address, models.LogInfo,
		fmt.Sprintf("Removed %s... from watchlist", shortMint(mint)), nil)
	return nil
}

// MarkSniped records that the executor bought the token: the entry is
// flagged sniped and deactivated so it is not bought twice.
func (s *WatchlistService) MarkSniped(address, mint string) error {
	now := time.Now().UTC()
	res := s.DB.Model(&models.WatchlistItem{}).
		Where("wallet_address = ? AND mint_address = ?", address, mint).
		Updates(map[string]any{
			"sniped":    true,
			"sniped_at": now,
			"is_active": false,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark entry sniped: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeactivateOrphans soft-deletes active entries whose wallet row no
// longer exists. Rotation orphans old entries by design; this keeps them
// from accumulating.
func (s *WatchlistService) DeactivateOrphans() (int64, error) {
	res := s.DB.Model(&models.WatchlistItem{}).
		Where("is_active = ?", true).
		Where("wallet_address NOT IN (?)",
			s.DB.Model(&models.User{}).Select("wallet_address")).
		Update("is_active", false)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to deactivate orphaned entries: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func shortMint(mint string) string {
	if len(mint) > 8 {
		return mint[:8]
	}
	return mint
}
