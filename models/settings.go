// models/settings.go
package models

// UserSettings is the per-wallet trading configuration, one-to-one with
// users.wallet_address. Upserted wholesale — last writer wins at row level.
type UserSettings struct {
	WalletAddress      string  `gorm:"primaryKey;type:varchar(64)" json:"wallet_address"`
	Slippage           float64 `gorm:"default:15" json:"slippage"`
	PriorityFee        float64 `gorm:"default:0.0001" json:"priority_fee"`
	Bribe              float64 `gorm:"default:0.0001" json:"bribe"`
	AutoSell           bool    `gorm:"default:false" json:"auto_sell"`
	AutoSellMultiplier float64 `gorm:"default:2" json:"auto_sell_multiplier"`
	MaxBuyPerToken     float64 `gorm:"default:1" json:"max_buy_per_token"`
	TelegramUserID     *string `json:"telegram_user_id"`
}

func (UserSettings) TableName() string { return "user_settings" }

// DefaultSettings is what a wallet gets on registration and rotation — a
// clean slate, never copied from a previous wallet.
func DefaultSettings(walletAddress string) UserSettings {
	return UserSettings{
		WalletAddress:      walletAddress,
		Slippage:           15,
		PriorityFee:        0.0001,
		Bribe:              0.0001,
		AutoSell:           false,
		AutoSellMultiplier: 2,
		MaxBuyPerToken:     1,
	}
}
