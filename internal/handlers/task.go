package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/noel-en-famille/internal/dto"
	apierrors "github.com/yukikurage/noel-en-famille/internal/errors"
	"github.com/yukikurage/noel-en-famille/internal/export"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/services"
	"github.com/yukikurage/noel-en-famille/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns all tasks of the event
func (h *TaskHandler) ListTasks(c *gin.Context) {
	_, event, ok := requestContext(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.ListTasks(event.ID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": dto.ToTaskDTOs(tasks)})
}

// GetTask returns a single task
func (h *TaskHandler) GetTask(c *gin.Context) {
	_, event, ok := requestContext(c)
	if !ok {
		return
	}

	taskID, ok := utils.ParseIDParam(c, "taskId")
	if !ok {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	task, err := h.taskService.GetTask(event.ID, taskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task in the event
func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, event, ok := requestContext(c)
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		Title       string            `json:"title" binding:"required"`
		Description string            `json:"description"`
		Status      models.TaskStatus `json:"status"`
		DueDate     string            `json:"due_date"`
		AssigneeID  *uint64           `json:"assignee_id"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Title is required")
		return
	}

	dueDate, err := parseOptionalTime(req.DueDate)
	if err != nil {
		apierrors.BadRequest(c, "Invalid due_date")
		return
	}

	task, err := h.taskService.CreateTask(event.ID, actor, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     dueDate,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask updates a task. Creator, assignee or admin only.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	actor, event, ok := requestContext(c)
	if !ok {
		return
	}

	taskID, ok := utils.ParseIDParam(c, "taskId")
	if !ok {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	type UpdateTaskRequest struct {
		Title         *string            `json:"title"`
		Description   *string            `json:"description"`
		Status        *models.TaskStatus `json:"status"`
		DueDate       *string            `json:"due_date"`
		ClearDueDate  bool               `json:"clear_due_date"`
		AssigneeID    *uint64            `json:"assignee_id"`
		ClearAssignee bool               `json:"clear_assignee"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		Status:        req.Status,
		ClearDueDate:  req.ClearDueDate,
		AssigneeID:    req.AssigneeID,
		ClearAssignee: req.ClearAssignee,
	}
	if req.DueDate != nil {
		dueDate, err := parseOptionalTime(*req.DueDate)
		if err != nil {
			apierrors.BadRequest(c, "Invalid due_date")
			return
		}
		if dueDate == nil {
			input.ClearDueDate = true
		}
		input.DueDate = dueDate
	}

	task, err := h.taskService.UpdateTask(event.ID, taskID, actor, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// ToggleTask flips a task between todo and done
func (h *TaskHandler) ToggleTask(c *gin.Context) {
	_, event, ok := requestContext(c)
	if !ok {
		return
	}

	taskID, ok := utils.ParseIDParam(c, "taskId")
	if !ok {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	task, err := h.taskService.ToggleTaskStatus(event.ID, taskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task. Creator or admin only.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	actor, event, ok := requestContext(c)
	if !ok {
		return
	}

	taskID, ok := utils.ParseIDParam(c, "taskId")
	if !ok {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	if err := h.taskService.DeleteTask(event.ID, taskID, actor); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// ExportICS returns the tasks of the event as an iCalendar file of VTODO entries
func (h *TaskHandler) ExportICS(c *gin.Context) {
	_, event, ok := requestContext(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.ListTasks(event.ID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.Header("Content-Type", "text/calendar; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="tasks-%d.ics"`, event.ID))
	c.Status(http.StatusOK)
	if err := export.TasksICS(c.Writer, event, tasks, time.Now()); err != nil {
		_ = c.Error(err)
	}
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrTaskPermissionDenied):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrInvalidTaskStatus),
		errors.Is(err, services.ErrInvalidTaskAssignee):
		apierrors.BadRequest(c, err.Error())
	default:
		if !respondCommonError(c, err) {
			respondInternal(c, err)
		}
	}
}
