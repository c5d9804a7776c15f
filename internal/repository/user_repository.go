package repository

import (
	"fmt"

	"github.com/yukikurage/noel-en-famille/internal/database"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/utils"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByName finds a user by display name, ignoring case
func (r *GormUserRepository) FindByName(name string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("LOWER(name) = LOWER(?)", name).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List lists one page of users ordered by name, with the total count
func (r *GormUserRepository) List(params utils.PaginationParams) ([]models.User, int64, error) {
	var total int64
	if err := r.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := r.db.Scopes(database.Paginate(params)).Order("name ASC").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update saves a user
func (r *GormUserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// Delete removes a user with memberships, votes, tokens and authored content.
// Polls and tasks they created go too; tasks merely assigned to them are unassigned.
func (r *GormUserRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		steps := []struct {
			what  string
			model interface{}
			where string
		}{
			{"refresh tokens", &models.RefreshToken{}, "user_id = ?"},
			{"memberships", &models.EventUser{}, "user_id = ?"},
			{"votes", &models.PollVote{}, "user_id = ?"},
			{"contributions", &models.Contribution{}, "user_id = ?"},
		}
		for _, s := range steps {
			if err := tx.Where(s.where, id).Delete(s.model).Error; err != nil {
				return fmt.Errorf("delete %s: %w", s.what, err)
			}
		}

		pollIDs := tx.Model(&models.Poll{}).Select("id").Where("creator_id = ?", id)
		if err := tx.Where("poll_id IN (?)", pollIDs).Delete(&models.PollVote{}).Error; err != nil {
			return fmt.Errorf("delete poll votes: %w", err)
		}
		if err := tx.Where("poll_id IN (?)", pollIDs).Delete(&models.PollOption{}).Error; err != nil {
			return fmt.Errorf("delete poll options: %w", err)
		}
		if err := tx.Where("creator_id = ?", id).Delete(&models.Poll{}).Error; err != nil {
			return fmt.Errorf("delete polls: %w", err)
		}

		if err := tx.Where("creator_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		if err := tx.Model(&models.Task{}).Where("assignee_id = ?", id).
			Update("assignee_id", nil).Error; err != nil {
			return fmt.Errorf("unassign tasks: %w", err)
		}

		messageIDs := tx.Model(&models.ChatMessage{}).Select("id").Where("user_id = ?", id)
		if err := tx.Where("message_id IN (?)", messageIDs).Delete(&models.ChatMedia{}).Error; err != nil {
			return fmt.Errorf("delete chat media: %w", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.ChatMessage{}).Error; err != nil {
			return fmt.Errorf("delete chat messages: %w", err)
		}

		return tx.Delete(&models.User{}, id).Error
	})
}

// ContentImageURLs lists the images attached to a user's contributions and chat messages
func (r *GormUserRepository) ContentImageURLs(id uint64) ([]string, error) {
	var urls []string
	if err := r.db.Model(&models.Contribution{}).
		Where("user_id = ? AND image_url <> ''", id).
		Pluck("image_url", &urls).Error; err != nil {
		return nil, err
	}

	var media []string
	messageIDs := r.db.Model(&models.ChatMessage{}).Select("id").Where("user_id = ?", id)
	if err := r.db.Model(&models.ChatMedia{}).
		Where("message_id IN (?)", messageIDs).
		Pluck("url", &media).Error; err != nil {
		return nil, err
	}
	return append(urls, media...), nil
}
