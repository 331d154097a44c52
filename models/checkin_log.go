// models/checkin_log.go
package models

import (
	"time"
)

// CheckinLog records the outcome of one account in one run. Written in a
// single batch after the run aggregates; never row-by-row mid-run.
type CheckinLog struct {
	ID        string `json:"id" gorm:"primaryKey"`
	RunID     string `json:"run_id" gorm:"index;not null"`
	AccountID string `json:"account_id" gorm:"index;not null"`
	GameName  string `json:"game_name" gorm:"index"`

	Status       string `json:"status" gorm:"index;not null"` // claimed | already_claimed | auth_failed | transient_error | permanent_error
	Message      string `json:"message" gorm:"type:text"`
	ErrorDetail  string `json:"error_detail,omitempty" gorm:"type:text"`
	RewardName   string `json:"reward_name,omitempty"`
	RewardCount  int    `json:"reward_count,omitempty"`
	TotalSignDay int    `json:"total_sign_day,omitempty"`

	CheckinDate time.Time `json:"checkin_date" gorm:"index;not null"`
	CreatedAt   time.Time `json:"created_at"`
}
