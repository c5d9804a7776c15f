package repository

import (
	"github.com/yukikurage/noel-en-famille/internal/models"
	"gorm.io/gorm"
)

// GormEventCodeRepository is a GORM implementation of EventCodeRepository
type GormEventCodeRepository struct {
	db *gorm.DB
}

// NewEventCodeRepository creates a new EventCodeRepository
func NewEventCodeRepository(db *gorm.DB) EventCodeRepository {
	return &GormEventCodeRepository{db: db}
}

// Create creates a code and its event links in one transaction
func (r *GormEventCodeRepository) Create(code *models.EventCode, eventIDs []uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		code.Events = nil
		if err := tx.Create(code).Error; err != nil {
			return err
		}
		return replaceCodeEvents(tx, code, eventIDs)
	})
}

// FindByID finds a code by ID
func (r *GormEventCodeRepository) FindByID(id uint64) (*models.EventCode, error) {
	var code models.EventCode
	if err := r.db.Preload("Events").First(&code, id).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

// FindByCode finds a code by its value
func (r *GormEventCodeRepository) FindByCode(value string) (*models.EventCode, error) {
	var code models.EventCode
	if err := r.db.Preload("Events").Where("code = ?", value).First(&code).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

// List lists all codes
func (r *GormEventCodeRepository) List() ([]models.EventCode, error) {
	var codes []models.EventCode
	if err := r.db.Preload("Events").Order("created_at DESC").Find(&codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

// Update saves code attributes; event links are left untouched
func (r *GormEventCodeRepository) Update(code *models.EventCode) error {
	return r.db.Omit("Events").Save(code).Error
}

// ReplaceEvents replaces the events linked to a code
func (r *GormEventCodeRepository) ReplaceEvents(codeID uint64, eventIDs []uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return replaceCodeEvents(tx, &models.EventCode{ID: codeID}, eventIDs)
	})
}

// Delete deletes a code and its event links
func (r *GormEventCodeRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_code_id = ?", id).Delete(&eventCodeEvent{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.EventCode{}, id).Error
	})
}

// eventCodeEvent is the join row GORM creates for EventCode.Events.
type eventCodeEvent struct {
	EventCodeID uint64 `gorm:"primarykey"`
	EventID     uint64 `gorm:"primarykey"`
}

func (eventCodeEvent) TableName() string {
	return "event_code_events"
}

func replaceCodeEvents(tx *gorm.DB, code *models.EventCode, eventIDs []uint64) error {
	if err := tx.Where("event_code_id = ?", code.ID).Delete(&eventCodeEvent{}).Error; err != nil {
		return err
	}
	if len(eventIDs) == 0 {
		return nil
	}

	rows := make([]eventCodeEvent, len(eventIDs))
	for i, id := range eventIDs {
		rows[i] = eventCodeEvent{EventCodeID: code.ID, EventID: id}
	}
	return tx.Create(&rows).Error
}
