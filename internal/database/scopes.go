package database

import (
	"gorm.io/gorm"

	"github.com/yukikurage/noel-en-famille/internal/utils"
)

// Paginate applies pagination to a GORM query
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

// ForEvent restricts a query to rows of one event.
func ForEvent(eventID uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("event_id = ?", eventID)
	}
}
