package repository

import (
	"time"

	"github.com/yukikurage/noel-en-famille/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormEventRepository is a GORM implementation of EventRepository
type GormEventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &GormEventRepository{db: db}
}

// Create creates a new event
func (r *GormEventRepository) Create(event *models.Event) error {
	return r.db.Create(event).Error
}

// FindByID finds an event by ID
func (r *GormEventRepository) FindByID(id uint64) (*models.Event, error) {
	var event models.Event
	if err := r.db.First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// Update updates an event
func (r *GormEventRepository) Update(event *models.Event) error {
	return r.db.Save(event).Error
}

// Delete deletes an event and all related data in a transaction
func (r *GormEventRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		pollIDs := tx.Model(&models.Poll{}).Select("id").Where("event_id = ?", id)
		if err := tx.Where("poll_id IN (?)", pollIDs).Delete(&models.PollVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id IN (?)", pollIDs).Delete(&models.PollOption{}).Error; err != nil {
			return err
		}

		messageIDs := tx.Model(&models.ChatMessage{}).Select("id").Where("event_id = ?", id)
		if err := tx.Where("message_id IN (?)", messageIDs).Delete(&models.ChatMedia{}).Error; err != nil {
			return err
		}

		// contributions may point at ingredients, so they go first
		if err := tx.Where("event_id = ?", id).Delete(&models.Contribution{}).Error; err != nil {
			return err
		}

		recipeIDs := tx.Model(&models.MenuRecipe{}).Select("id").Where("event_id = ?", id)
		if err := tx.Where("recipe_id IN (?)", recipeIDs).Delete(&models.MenuIngredient{}).Error; err != nil {
			return err
		}

		for _, model := range []interface{}{
			&models.Poll{},
			&models.ChatMessage{},
			&models.MenuRecipe{},
			&models.Task{},
			&models.EventUser{},
		} {
			if err := tx.Where("event_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}

		if err := tx.Exec("DELETE FROM event_code_events WHERE event_id = ?", id).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Event{}, id).Error
	})
}

// ContentImageURLs lists the images attached to an event's contributions and chat messages
func (r *GormEventRepository) ContentImageURLs(id uint64) ([]string, error) {
	var urls []string
	if err := r.db.Model(&models.Contribution{}).
		Where("event_id = ? AND image_url <> ''", id).
		Pluck("image_url", &urls).Error; err != nil {
		return nil, err
	}

	var media []string
	messageIDs := r.db.Model(&models.ChatMessage{}).Select("id").Where("event_id = ?", id)
	if err := r.db.Model(&models.ChatMedia{}).
		Where("message_id IN (?)", messageIDs).
		Pluck("url", &media).Error; err != nil {
		return nil, err
	}
	return append(urls, media...), nil
}

// List lists all events
func (r *GormEventRepository) List() ([]models.Event, error) {
	var events []models.Event
	if err := r.db.Order("created_at DESC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// ListOpenIDs returns the IDs of non-closed events
func (r *GormEventRepository) ListOpenIDs() ([]uint64, error) {
	var ids []uint64
	if err := r.db.Model(&models.Event{}).
		Where("is_closed = ?", false).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ListForUser lists the events a user belongs to
func (r *GormEventRepository) ListForUser(userID uint64) ([]models.Event, error) {
	var events []models.Event
	if err := r.db.
		Joins("JOIN event_users ON event_users.event_id = events.id").
		Where("event_users.user_id = ?", userID).
		Order("events.created_at DESC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// AddMember links a user to the given events, ignoring existing links
func (r *GormEventRepository) AddMember(userID uint64, eventIDs []uint64) error {
	if len(eventIDs) == 0 {
		return nil
	}

	now := time.Now()
	members := make([]models.EventUser, len(eventIDs))
	for i, eventID := range eventIDs {
		members[i] = models.EventUser{
			EventID:  eventID,
			UserID:   userID,
			JoinedAt: now,
		}
	}

	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&members).Error
}

// FindMember finds a specific event membership
func (r *GormEventRepository) FindMember(eventID, userID uint64) (*models.EventUser, error) {
	var member models.EventUser
	if err := r.db.Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers lists all members of an event
func (r *GormEventRepository) ListMembers(eventID uint64) ([]models.EventUser, error) {
	var members []models.EventUser
	if err := r.db.Preload("User").
		Where("event_id = ?", eventID).
		Order("joined_at ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// Summary counts the content of an event
func (r *GormEventRepository) Summary(eventID uint64) (*EventCounts, error) {
	var counts EventCounts

	queries := []struct {
		dest  *int64
		model interface{}
		where string
		args  []interface{}
	}{
		{&counts.Participants, &models.EventUser{}, "event_id = ?", []interface{}{eventID}},
		{&counts.Contributions, &models.Contribution{}, "event_id = ?", []interface{}{eventID}},
		{&counts.OpenPolls, &models.Poll{}, "event_id = ? AND is_closed = ?", []interface{}{eventID, false}},
		{&counts.OpenTasks, &models.Task{}, "event_id = ? AND status = ?", []interface{}{eventID, models.TaskStatusTodo}},
		{&counts.Messages, &models.ChatMessage{}, "event_id = ?", []interface{}{eventID}},
		{&counts.Recipes, &models.MenuRecipe{}, "event_id = ?", []interface{}{eventID}},
	}

	for _, q := range queries {
		if err := r.db.Model(q.model).Where(q.where, q.args...).Count(q.dest).Error; err != nil {
			return nil, err
		}
	}

	return &counts, nil
}
