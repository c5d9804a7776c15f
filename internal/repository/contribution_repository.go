package repository

import (
	"github.com/yukikurage/noel-en-famille/internal/database"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"gorm.io/gorm"
)

// GormContributionRepository is a GORM implementation of ContributionRepository
type GormContributionRepository struct {
	db *gorm.DB
}

// NewContributionRepository creates a new ContributionRepository
func NewContributionRepository(db *gorm.DB) ContributionRepository {
	return &GormContributionRepository{db: db}
}

// Create creates a new contribution
func (r *GormContributionRepository) Create(contribution *models.Contribution) error {
	return r.db.Create(contribution).Error
}

// FindByID finds a contribution with its owner and ingredient
func (r *GormContributionRepository) FindByID(id uint64) (*models.Contribution, error) {
	var contribution models.Contribution
	if err := r.db.Preload("User").Preload("Ingredient").First(&contribution, id).Error; err != nil {
		return nil, err
	}
	return &contribution, nil
}

// ListByEvent lists the contributions of an event by category then title
func (r *GormContributionRepository) ListByEvent(eventID uint64) ([]models.Contribution, error) {
	var contributions []models.Contribution
	if err := r.db.Preload("User").Preload("Ingredient").
		Scopes(database.ForEvent(eventID)).
		Order("category ASC, created_at ASC").
		Find(&contributions).Error; err != nil {
		return nil, err
	}
	return contributions, nil
}

// Update updates a contribution
func (r *GormContributionRepository) Update(contribution *models.Contribution) error {
	return r.db.Omit("User", "Ingredient").Save(contribution).Error
}

// Delete deletes a contribution
func (r *GormContributionRepository) Delete(id uint64) error {
	return r.db.Delete(&models.Contribution{}, id).Error
}
