// models/sniper_status.go
package models

import "time"

// SniperStatus tracks the run state of a wallet's sniper, one-to-one with
// users.wallet_address. is_running=true implies started_at is set and at
// least as recent as stopped_at. LastHeartbeat is advanced by the external
// executor while running; this service reads it but does not require it
// to be fresh.
type SniperStatus struct {
	WalletAddress string     `gorm:"primaryKey;type:varchar(64)" json:"wallet_address"`
	IsRunning     bool       `gorm:"default:false" json:"is_running"`
	StartedAt     *time.Time `json:"started_at"`
	StoppedAt     *time.Time `json:"stopped_at"`
	LastHeartbeat time.Time  `gorm:"autoCreateTime" json:"last_heartbeat"`
}

func (SniperStatus) TableName() string { return "sniper_status" }
