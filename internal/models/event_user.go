package models

import "time"

// EventUser grants a user access to an event.
type EventUser struct {
	EventID  uint64    `gorm:"primarykey" json:"event_id"`
	UserID   uint64    `gorm:"primarykey" json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`

	// Relations
	Event Event `gorm:"foreignKey:EventID" json:"event,omitempty"`
	User  User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
