package models

import (
	"time"
)

type PollType string

const (
	PollTypeSingle   PollType = "single"
	PollTypeMultiple PollType = "multiple"
)

type Poll struct {
	ID        uint64               `gorm:"primarykey" json:"id"`
	EventID   uint64               `gorm:"not null;index" json:"event_id"`
	CreatorID uint64               `gorm:"not null" json:"creator_id"`
	Question  string               `gorm:"type:varchar(500);not null" json:"question"`
	Type      PollType             `gorm:"type:varchar(20);not null;default:'single'" json:"type"`
	Category  ContributionCategory `gorm:"type:varchar(20);not null;default:'food'" json:"category"`
	IsClosed  bool                 `gorm:"not null;default:false" json:"is_closed"`
	ClosedAt  *time.Time           `json:"closed_at"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`

	// Relations
	Creator User         `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Options []PollOption `gorm:"foreignKey:PollID" json:"options,omitempty"`
	Votes   []PollVote   `gorm:"foreignKey:PollID" json:"-"`
}

type PollOption struct {
	ID       uint64 `gorm:"primarykey" json:"id"`
	PollID   uint64 `gorm:"not null;index" json:"poll_id"`
	Label    string `gorm:"type:varchar(255);not null" json:"label"`
	Position int    `gorm:"not null" json:"position"`
}

type PollVote struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	PollID    uint64    `gorm:"not null;index" json:"poll_id"`
	OptionID  uint64    `gorm:"not null;uniqueIndex:idx_poll_votes_option_user" json:"option_id"`
	UserID    uint64    `gorm:"not null;uniqueIndex:idx_poll_votes_option_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
