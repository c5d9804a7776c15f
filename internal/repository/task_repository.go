package repository

import (
	"time"

	"github.com/yukikurage/noel-en-famille/internal/database"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Omit("Creator", "Assignee", "Event").Create(task).Error
}

// FindByID finds a task with creator and assignee
func (r *GormTaskRepository) FindByID(id uint64) (*models.Task, error) {
	var task models.Task
	if err := r.db.Preload("Creator").Preload("Assignee").First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByEvent lists tasks of an event: open first, then by due date, undated last
func (r *GormTaskRepository) ListByEvent(eventID uint64) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.Preload("Creator").Preload("Assignee").
		Scopes(database.ForEvent(eventID)).
		Order("CASE WHEN status = 'done' THEN 1 ELSE 0 END").
		Order("CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date ASC").
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Omit("Creator", "Assignee", "Event").Save(task).Error
}

// Delete deletes a task
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Delete(&models.Task{}, id).Error
}

// ListDueBetween lists open, assigned tasks of open events due in [from, to)
func (r *GormTaskRepository) ListDueBetween(from, to time.Time) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.Preload("Assignee").Preload("Event").
		Joins("JOIN events ON events.id = tasks.event_id").
		Where("tasks.status = ?", models.TaskStatusTodo).
		Where("tasks.assignee_id IS NOT NULL").
		Where("tasks.due_date >= ? AND tasks.due_date < ?", from, to).
		Where("events.is_closed = ?", false).
		Order("tasks.due_date ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}
