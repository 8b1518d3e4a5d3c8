// models/watchlist.go
package models

import "time"

// WatchlistItem is a token a wallet has asked the executor to watch and
// buy on its trigger. Unique on (wallet_address, mint_address); re-adding
// a removed token reactivates the same row. is_active=false is a soft
// delete; Sniped/SnipedAt are written only by the external executor.
type WatchlistItem struct {
	ID            string     `gorm:"primaryKey;type:uuid" json:"id"`
	WalletAddress string     `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_wallet_mint" json:"wallet_address"`
	MintAddress   string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_wallet_mint" json:"mint_address"`
	BuyAmount     float64    `gorm:"not null" json:"buy_amount"`
	IsActive      bool       `gorm:"default:true" json:"is_active"`
	Sniped        bool       `gorm:"default:false" json:"sniped"`
	SnipedAt      *time.Time `json:"sniped_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (WatchlistItem) TableName() string { return "watchlist" }
