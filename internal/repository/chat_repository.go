package repository

import (
	"github.com/yukikurage/noel-en-famille/internal/database"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"gorm.io/gorm"
)

// GormChatRepository is a GORM implementation of ChatRepository
type GormChatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new ChatRepository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &GormChatRepository{db: db}
}

// Create stores a message; media rows are created with it
func (r *GormChatRepository) Create(message *models.ChatMessage) error {
	return r.db.Omit("User").Create(message).Error
}

// FindByID finds a message with author and media
func (r *GormChatRepository) FindByID(id uint64) (*models.ChatMessage, error) {
	var message models.ChatMessage
	if err := r.db.Preload("User").Preload("Media").First(&message, id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// ListByEvent returns a page of messages, oldest first
func (r *GormChatRepository) ListByEvent(eventID, beforeID uint64, limit int) ([]models.ChatMessage, error) {
	query := r.db.Preload("User").Preload("Media").Scopes(database.ForEvent(eventID))
	if beforeID > 0 {
		query = query.Where("id < ?", beforeID)
	}

	var messages []models.ChatMessage
	if err := query.Order("id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Delete deletes a message and its media rows
func (r *GormChatRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&models.ChatMedia{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ChatMessage{}, id).Error
	})
}
