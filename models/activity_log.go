// models/activity_log.go
package models

import "time"

// Log severity levels shared by the activity feed and the executor.
const (
	LogInfo    = "INFO"
	LogWarning = "WARNING"
	LogError   = "ERROR"
	LogSuccess = "SUCCESS"
)

// ActivityLog is an append-only event row. Never updated or deleted by
// this service; the dashboard feed merges it with trade_logs at read time.
type ActivityLog struct {
	ID            string         `gorm:"primaryKey;type:uuid" json:"id"`
	WalletAddress string         `gorm:"type:varchar(64);not null;index" json:"wallet_address"`
	LogType       string         `gorm:"type:varchar(16);not null" json:"log_type"`
	Message       string         `gorm:"not null" json:"message"`
	Metadata      map[string]any `gorm:"serializer:json" json:"metadata"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

func (ActivityLog) TableName() string { return "activity_logs" }
