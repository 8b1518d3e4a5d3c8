// models/trade_log.go
package models

import "time"

// Trade actions and statuses written by the external executor.
const (
	TradeBuy    = "BUY"
	TradeSell   = "SELL"
	TradeFailed = "FAILED"

	TradeStatusPending   = "pending"
	TradeStatusConfirmed = "confirmed"
	TradeStatusFailed    = "failed"
)

// TradeLog is an append-only record of an executed (or failed) trade.
// Inserted by the executor through the worker API, read-only here.
type TradeLog struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	WalletAddress string    `gorm:"type:varchar(64);not null;index" json:"wallet_address"`
	MintAddress   string    `gorm:"type:varchar(64);not null" json:"mint_address"`
	Action        string    `gorm:"type:varchar(8);not null" json:"action"`
	AmountSol     float64   `json:"amount_sol"`
	AmountTokens  float64   `json:"amount_tokens"`
	PricePerToken float64   `json:"price_per_token"`
	TxSignature   *string   `json:"tx_signature"`
	Status        string    `gorm:"type:varchar(16);not null" json:"status"`
	ErrorMessage  *string   `json:"error_message"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (TradeLog) TableName() string { return "trade_logs" }
