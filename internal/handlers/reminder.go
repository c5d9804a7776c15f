package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/noel-en-famille/internal/services"
)

// ReminderHandler triggers the due-task email digest. Guarded by RequireCronSecret.
type ReminderHandler struct {
	reminderService *services.ReminderService
}

func NewReminderHandler(reminderService *services.ReminderService) *ReminderHandler {
	return &ReminderHandler{reminderService: reminderService}
}

// SendReminders emails every assignee with tasks due in the next 24 hours.
func (h *ReminderHandler) SendReminders(c *gin.Context) {
	result, err := h.reminderService.Send(c.Request.Context())
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
