package models

import (
	"time"
)

type Event struct {
	ID          uint64     `gorm:"primarykey" json:"id"`
	Name        string     `gorm:"type:varchar(255);not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	Location    string     `gorm:"type:varchar(255)" json:"location"`
	StartsAt    *time.Time `json:"starts_at"`
	IsClosed    bool       `gorm:"not null;default:false;index" json:"is_closed"`
	ImageURL    string     `gorm:"type:varchar(500)" json:"image_url,omitempty"`
	CreatedByID *uint64    `json:"created_by_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relations
	Members []EventUser `gorm:"foreignKey:EventID" json:"-"`
}
