package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/noel-en-famille/internal/constants"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrTitleRequired        = errors.New("title is required")
	ErrTitleEmpty           = errors.New("title cannot be empty")
	ErrInvalidTaskStatus    = errors.New("status must be todo or done")
	ErrInvalidTaskAssignee  = errors.New("assignee is not a participant of this event")
	ErrTaskPermissionDenied = errors.New("user does not have permission to modify this task")
)

// TaskService handles task business logic
type TaskService struct {
	taskRepo  repository.TaskRepository
	eventRepo repository.EventRepository
	notifier  Notifier
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, eventRepo repository.EventRepository, notifier Notifier) *TaskService {
	return &TaskService{
		taskRepo:  taskRepo,
		eventRepo: eventRepo,
		notifier:  notifierOrNoop(notifier),
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	Status      models.TaskStatus
	DueDate     *time.Time
	AssigneeID  *uint64
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Status        *models.TaskStatus
	DueDate       *time.Time
	ClearDueDate  bool
	AssigneeID    *uint64
	ClearAssignee bool
}

// ListTasks returns the tasks of an event
func (s *TaskService) ListTasks(eventID uint64) ([]models.Task, error) {
	tasks, err := s.taskRepo.ListByEvent(eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns a task of the event with related data
func (s *TaskService) GetTask(eventID, taskID uint64) (*models.Task, error) {
	return s.find(eventID, taskID)
}

// CreateTask creates a new task in the event
func (s *TaskService) CreateTask(eventID uint64, actor Actor, input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}
	if !validTaskStatus(input.Status) {
		return nil, ErrInvalidTaskStatus
	}

	if input.AssigneeID != nil {
		if err := s.ensureParticipant(eventID, *input.AssigneeID); err != nil {
			return nil, err
		}
	}

	task := &models.Task{
		EventID:     eventID,
		CreatorID:   actor.ID,
		AssigneeID:  input.AssigneeID,
		Title:       title,
		Description: input.Description,
		Status:      input.Status,
		DueDate:     input.DueDate,
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.notifier.Notify(eventID, constants.RealtimeTaskUpdate, change{Action: "created", ID: task.ID})
	return s.taskRepo.FindByID(task.ID)
}

// UpdateTask updates an existing task. The creator, the assignee and admins may edit it.
func (s *TaskService) UpdateTask(eventID, taskID uint64, actor Actor, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.find(eventID, taskID)
	if err != nil {
		return nil, err
	}
	if !canEditTask(actor, task) {
		return nil, ErrTaskPermissionDenied
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleEmpty
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if !validTaskStatus(*input.Status) {
			return nil, ErrInvalidTaskStatus
		}
		task.Status = *input.Status
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.ClearAssignee {
		task.AssigneeID = nil
	} else if input.AssigneeID != nil {
		if err := s.ensureParticipant(eventID, *input.AssigneeID); err != nil {
			return nil, err
		}
		id := *input.AssigneeID
		task.AssigneeID = &id
	}
	task.Assignee = nil

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.notifier.Notify(eventID, constants.RealtimeTaskUpdate, change{Action: "updated", ID: task.ID})
	return s.taskRepo.FindByID(task.ID)
}

// ToggleTaskStatus toggles a task between todo and done. Any participant may tick a task.
func (s *TaskService) ToggleTaskStatus(eventID, taskID uint64) (*models.Task, error) {
	task, err := s.find(eventID, taskID)
	if err != nil {
		return nil, err
	}

	if task.Status == models.TaskStatusDone {
		task.Status = models.TaskStatusTodo
	} else {
		task.Status = models.TaskStatusDone
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to toggle status: %w", err)
	}

	s.notifier.Notify(eventID, constants.RealtimeTaskUpdate, change{Action: "updated", ID: task.ID})
	return task, nil
}

// DeleteTask deletes a task if the actor is the creator or an admin
func (s *TaskService) DeleteTask(eventID, taskID uint64, actor Actor) error {
	task, err := s.find(eventID, taskID)
	if err != nil {
		return err
	}

	if !actor.CanModify(task.CreatorID) {
		return ErrTaskPermissionDenied
	}

	if err := s.taskRepo.Delete(task.ID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.notifier.Notify(eventID, constants.RealtimeTaskUpdate, change{Action: "deleted", ID: task.ID})
	return nil
}

func (s *TaskService) find(eventID, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task.EventID != eventID {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// ensureParticipant verifies that a user belongs to the event
func (s *TaskService) ensureParticipant(eventID, userID uint64) error {
	_, err := s.eventRepo.FindMember(eventID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidTaskAssignee
		}
		return fmt.Errorf("failed to verify event membership: %w", err)
	}
	return nil
}

func canEditTask(actor Actor, task *models.Task) bool {
	if actor.CanModify(task.CreatorID) {
		return true
	}
	return task.AssigneeID != nil && *task.AssigneeID == actor.ID
}

func validTaskStatus(status models.TaskStatus) bool {
	return status == models.TaskStatusTodo || status == models.TaskStatusDone
}
