// models/user.go
package models

import "time"

// User is one registered sniper wallet. wallet_address is the natural key
// for every dependent row (settings, status, watchlist, logs).
//
// EncryptedPrivateKey is only ever read or written through the wallet
// service; it holds either an "ENCRYPTED:..." envelope, a legacy plaintext
// key, or the custodial sentinel.
type User struct {
	WalletAddress       string    `gorm:"primaryKey;type:varchar(64)" json:"wallet_address"`
	EncryptedPrivateKey *string   `json:"-"` // never serialized to clients
	PrincipalID         *string   `gorm:"index" json:"principal_id"` // external auth provider user id
	IsActive            bool      `gorm:"default:true" json:"is_active"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (User) TableName() string { return "users" }
