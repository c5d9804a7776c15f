package models

import (
	"time"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Email     *string   `gorm:"type:varchar(255)" json:"email,omitempty"`
	AvatarURL string    `gorm:"type:varchar(500)" json:"avatar_url,omitempty"`
	Role      UserRole  `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Memberships []EventUser `gorm:"foreignKey:UserID" json:"-"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
