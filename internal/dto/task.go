package dto

import (
	"time"

	"github.com/yukikurage/noel-en-famille/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        uint64          `json:"id"`
	Name      string          `json:"name"`
	Email     *string         `json:"email,omitempty"`
	AvatarURL string          `json:"avatar_url,omitempty"`
	Role      models.UserRole `json:"role"`
}

// PublicUserDTO is what other participants see of a user
type PublicUserDTO struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          uint64            `json:"id"`
	EventID     uint64            `json:"event_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      models.TaskStatus `json:"status"`
	DueDate     *time.Time        `json:"due_date"`
	CreatorID   uint64            `json:"creator_id"`
	AssigneeID  *uint64           `json:"assignee_id"`
	Creator     *PublicUserDTO    `json:"creator,omitempty"`
	Assignee    *PublicUserDTO    `json:"assignee,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
		Role:      user.Role,
	}
}

// ToUserDTOs converts a slice of users
func ToUserDTOs(users []models.User) []UserDTO {
	result := make([]UserDTO, len(users))
	for i, u := range users {
		result[i] = ToUserDTO(u)
	}
	return result
}

// ToPublicUserDTO converts a User model to PublicUserDTO, nil for an unloaded relation
func ToPublicUserDTO(user *models.User) *PublicUserDTO {
	if user == nil || user.ID == 0 {
		return nil
	}
	return &PublicUserDTO{
		ID:        user.ID,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	}
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	return TaskDTO{
		ID:          task.ID,
		EventID:     task.EventID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		DueDate:     task.DueDate,
		CreatorID:   task.CreatorID,
		AssigneeID:  task.AssigneeID,
		Creator:     ToPublicUserDTO(&task.Creator),
		Assignee:    ToPublicUserDTO(task.Assignee),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	result := make([]TaskDTO, len(tasks))
	for i, t := range tasks {
		result[i] = ToTaskDTO(t)
	}
	return result
}
