// models/account.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Account is one stored game account. The credential column holds the raw
// cookie string (cookie-signed family) or the long-lived account token
// (oauth-token family), AES-GCM encrypted at rest. The check-in engine only
// ever sees the decrypted value for the duration of a single account's run.
type Account struct {
	ID       string `json:"id" gorm:"primaryKey"`
	OwnerID  string `json:"owner_id" gorm:"index:idx_owner_game_label,unique;not null"`
	GameName string `json:"game_name" gorm:"index:idx_owner_game_label,unique;not null"`
	Label    string `json:"label" gorm:"index:idx_owner_game_label,unique;not null"`

	Credential string `json:"-" gorm:"type:text;not null"` // encrypted, never serialized

	// Cached profile fields; refreshed from successful check-ins
	UID      string `json:"uid,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Rank     int    `json:"rank,omitempty"`
	Region   string `json:"region,omitempty"`

	IsActive  bool           `json:"is_active" gorm:"default:true;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
