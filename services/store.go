// services/store.go
package services

import (
	"context"
	"time"

	"daily-checkin-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is the persistence boundary the orchestrator consumes. The run
// itself never writes; SaveRun happens once, after aggregation.
type Store interface {
	ActiveGames(ctx context.Context) ([]models.Game, error)
	ActiveAccounts(ctx context.Context) ([]models.Account, error)
	SaveRun(ctx context.Context, report *RunReport) error
	RunHistory(ctx context.Context, gameName string, limit int) ([]models.CheckinLog, error)
}

type gormStore struct {
	db *gorm.DB
}

// NewStore returns the gorm-backed Store implementation.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) ActiveGames(ctx context.Context) ([]models.Game, error) {
	var gameRows []models.Game
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&gameRows).Error
	return gameRows, err
}

// ActiveAccounts returns the eligible snapshot in insertion order.
func (s *gormStore) ActiveAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC, id ASC").
		Find(&accounts).Error
	return accounts, err
}

// SaveRun writes one CheckinLog row per outcome and refreshes cached
// profile fields, all in one transaction.
func (s *gormStore) SaveRun(ctx context.Context, report *RunReport) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		logs := make([]models.CheckinLog, 0, len(report.Outcomes))
		for _, out := range report.Outcomes {
			row := models.CheckinLog{
				ID:           uuid.NewString(),
				RunID:        report.RunID,
				AccountID:    out.AccountID,
				GameName:     out.GameName,
				Status:       string(out.Status),
				Message:      out.Message,
				ErrorDetail:  out.ErrorDetail,
				TotalSignDay: out.TotalSignDay,
				CheckinDate:  report.StartedAt.UTC().Truncate(24 * time.Hour),
			}
			if out.Reward != nil {
				row.RewardName = out.Reward.Name
				row.RewardCount = out.Reward.Count
			}
			logs = append(logs, row)

			if out.Profile != nil {
				if err := tx.Model(&models.Account{}).
					Where("id = ?", out.AccountID).
					Updates(map[string]any{
						"uid":      out.Profile.UID,
						"nickname": out.Profile.Nickname,
						"rank":     out.Profile.Rank,
						"region":   out.Profile.Region,
					}).Error; err != nil {
					return err
				}
			}
		}
		if len(logs) == 0 {
			return nil
		}
		return tx.Create(&logs).Error
	})
}

func (s *gormStore) RunHistory(ctx context.Context, gameName string, limit int) ([]models.CheckinLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if gameName != "" {
		q = q.Where("game_name = ?", gameName)
	}
	var logs []models.CheckinLog
	err := q.Find(&logs).Error
	return logs, err
}
