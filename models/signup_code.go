// models/signup_code.go
package models

import "time"

// SignupCode gates onboarding. Each code is single-use; redemption is a
// conditional update on is_used=false so two racing registrations cannot
// both claim the same code.
type SignupCode struct {
	Code      string     `gorm:"primaryKey;type:varchar(64)" json:"code"`
	IsUsed    bool       `gorm:"default:false" json:"is_used"`
	UsedBy    *string    `json:"used_by"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (SignupCode) TableName() string { return "signup_codes" }
