package repository

import (
	"time"

	"github.com/yukikurage/noel-en-famille/internal/database"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"gorm.io/gorm"
)

// GormPollRepository is a GORM implementation of PollRepository
type GormPollRepository struct {
	db *gorm.DB
}

// NewPollRepository creates a new PollRepository
func NewPollRepository(db *gorm.DB) PollRepository {
	return &GormPollRepository{db: db}
}

func orderedOptions(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create creates a poll with its options
func (r *GormPollRepository) Create(poll *models.Poll) error {
	return r.db.Create(poll).Error
}

// FindByID finds a poll with its options
func (r *GormPollRepository) FindByID(id uint64) (*models.Poll, error) {
	var poll models.Poll
	if err := r.db.Preload("Options", orderedOptions).Preload("Creator").First(&poll, id).Error; err != nil {
		return nil, err
	}
	return &poll, nil
}

// ListByEvent lists polls of an event, open ones first
func (r *GormPollRepository) ListByEvent(eventID uint64) ([]models.Poll, error) {
	var polls []models.Poll
	if err := r.db.Preload("Options", orderedOptions).Preload("Creator").
		Scopes(database.ForEvent(eventID)).
		Order("is_closed ASC, created_at DESC").
		Find(&polls).Error; err != nil {
		return nil, err
	}
	return polls, nil
}

// Tally counts votes per option for the given polls
func (r *GormPollRepository) Tally(pollIDs []uint64) (map[uint64]int64, error) {
	tally := make(map[uint64]int64)
	if len(pollIDs) == 0 {
		return tally, nil
	}

	var rows []struct {
		OptionID uint64
		Votes    int64
	}
	if err := r.db.Model(&models.PollVote{}).
		Select("option_id, COUNT(*) AS votes").
		Where("poll_id IN ?", pollIDs).
		Group("option_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		tally[row.OptionID] = row.Votes
	}
	return tally, nil
}

// VotesByUser returns the options a user picked, per poll
func (r *GormPollRepository) VotesByUser(pollIDs []uint64, userID uint64) (map[uint64][]uint64, error) {
	votes := make(map[uint64][]uint64)
	if len(pollIDs) == 0 {
		return votes, nil
	}

	var rows []models.PollVote
	if err := r.db.Where("poll_id IN ? AND user_id = ?", pollIDs, userID).
		Order("option_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, v := range rows {
		votes[v.PollID] = append(votes[v.PollID], v.OptionID)
	}
	return votes, nil
}

// ReplaceVotes replaces a user's votes on a poll in one transaction
func (r *GormPollRepository) ReplaceVotes(pollID, userID uint64, optionIDs []uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("poll_id = ? AND user_id = ?", pollID, userID).
			Delete(&models.PollVote{}).Error; err != nil {
			return err
		}
		if len(optionIDs) == 0 {
			return nil
		}

		votes := make([]models.PollVote, len(optionIDs))
		for i, optionID := range optionIDs {
			votes[i] = models.PollVote{PollID: pollID, OptionID: optionID, UserID: userID}
		}
		return tx.Create(&votes).Error
	})
}

// Delete deletes a poll with options and votes
func (r *GormPollRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("poll_id = ?", id).Delete(&models.PollVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id = ?", id).Delete(&models.PollOption{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Poll{}, id).Error
	})
}

// Close closes a poll and creates the winning contributions atomically
func (r *GormPollRepository) Close(pollID uint64, at time.Time, contributions []models.Contribution) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Poll{}).
			Where("id = ? AND is_closed = ?", pollID, false).
			Updates(map[string]interface{}{"is_closed": true, "closed_at": at})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyClosed
		}

		if len(contributions) == 0 {
			return nil
		}
		return tx.Create(&contributions).Error
	})
}
