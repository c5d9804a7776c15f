package models

import (
	"time"
)

// EventCode is an invite code. A master code grants every non-closed event.
type EventCode struct {
	ID        uint64     `gorm:"primarykey" json:"id"`
	Code      string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Label     string     `gorm:"type:varchar(255)" json:"label"`
	IsMaster  bool       `gorm:"not null;default:false" json:"is_master"`
	IsActive  bool       `gorm:"not null;default:true" json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Events []Event `gorm:"many2many:event_code_events" json:"events,omitempty"`
}

// Usable reports whether the code may be presented at login at time now.
func (c EventCode) Usable(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	return c.ExpiresAt == nil || c.ExpiresAt.After(now)
}
