package repository

import (
	"github.com/yukikurage/noel-en-famille/internal/models"
	"gorm.io/gorm"
)

// GormStatsRepository counts rows for the admin dashboard
type GormStatsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &GormStatsRepository{db: db}
}

// Counts returns row counts per entity
func (r *GormStatsRepository) Counts() (map[string]int64, error) {
	tables := map[string]interface{}{
		"users":         &models.User{},
		"events":        &models.Event{},
		"event_codes":   &models.EventCode{},
		"contributions": &models.Contribution{},
		"polls":         &models.Poll{},
		"votes":         &models.PollVote{},
		"tasks":         &models.Task{},
		"messages":      &models.ChatMessage{},
		"recipes":       &models.MenuRecipe{},
	}

	counts := make(map[string]int64, len(tables)+1)
	for name, model := range tables {
		var n int64
		if err := r.db.Model(model).Count(&n).Error; err != nil {
			return nil, err
		}
		counts[name] = n
	}

	var unrevoked int64
	if err := r.db.Model(&models.RefreshToken{}).Where("revoked_at IS NULL").Count(&unrevoked).Error; err != nil {
		return nil, err
	}
	counts["unrevoked_refresh_tokens"] = unrevoked

	return counts, nil
}
