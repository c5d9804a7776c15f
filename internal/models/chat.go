package models

import "time"

type ChatMessage struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	EventID   uint64    `gorm:"not null;index" json:"event_id"`
	UserID    uint64    `gorm:"not null" json:"user_id"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	User  User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Media []ChatMedia `gorm:"foreignKey:MessageID" json:"media,omitempty"`
}

type ChatMedia struct {
	ID        uint64 `gorm:"primarykey" json:"id"`
	MessageID uint64 `gorm:"not null;index" json:"message_id"`
	URL       string `gorm:"type:varchar(500);not null" json:"url"`
}
