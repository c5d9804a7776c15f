package models

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusTodo TaskStatus = "todo"
	TaskStatusDone TaskStatus = "done"
)

type Task struct {
	ID          uint64     `gorm:"primarykey" json:"id"`
	EventID     uint64     `gorm:"not null;index" json:"event_id"`
	CreatorID   uint64     `gorm:"not null" json:"creator_id"`
	AssigneeID  *uint64    `gorm:"index" json:"assignee_id"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      TaskStatus `gorm:"type:varchar(20);not null;default:'todo'" json:"status"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relations
	Creator  User  `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Assignee *User `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Event    Event `gorm:"foreignKey:EventID" json:"-"`
}
