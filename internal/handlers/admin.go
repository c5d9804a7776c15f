package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/noel-en-famille/internal/dto"
	apierrors "github.com/yukikurage/noel-en-famille/internal/errors"
	"github.com/yukikurage/noel-en-famille/internal/middleware"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/services"
	"github.com/yukikurage/noel-en-famille/internal/utils"
)

// AdminHandler serves the admin dashboard. Routes are guarded by RequireAdmin.
type AdminHandler struct {
	adminService *services.AdminService
	eventService *services.EventService
	chatService  *services.ChatService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService *services.AdminService, eventService *services.EventService, chatService *services.ChatService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		eventService: eventService,
		chatService:  chatService,
	}
}

// ListCodes returns all invite codes.
func (h *AdminHandler) ListCodes(c *gin.Context) {
	codes, err := h.adminService.ListCodes()
	if err != nil {
		respondAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"codes": codes})
}

// CreateCode creates an invite code. A random code is generated when none is given.
func (h *AdminHandler) CreateCode(c *gin.Context) {
	type CreateCodeRequest struct {
		Code      string   `json:"code"`
		Label     string   `json:"label"`
		IsMaster  bool     `json:"is_master"`
		ExpiresAt string   `json:"expires_at"`
		EventIDs  []uint64 `json:"event_ids"`
	}

	var req CreateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	expiresAt, err := parseOptionalTime(req.ExpiresAt)
	if err != nil {
		apierrors.BadRequest(c, "Invalid expires_at")
		return
	}

	code, err := h.adminService.CreateCode(services.CreateCodeInput{
		Code:      req.Code,
		Label:     req.Label,
		IsMaster:  req.IsMaster,
		ExpiresAt: expiresAt,
		EventIDs:  req.EventIDs,
	})
	if err != nil {
		respondAdminError(c, err)
		return
	}

	c.JSON(http.StatusCreated, code)
}

// UpdateCode edits an invite code.
func (h *AdminHandler) UpdateCode(c *gin.Context) {
	codeID, ok := utils.ParseIDParam(c, "codeId")
	if !ok {
		apierrors.BadRequest(c, "Invalid code ID")
		return
	}

	type UpdateCodeRequest struct {
		Label       *string   `json:"label"`
		IsActive    *bool     `json:"is_active"`
		IsMaster    *bool     `json:"is_master"`
		ExpiresAt   *string   `json:"expires_at"`
		ClearExpiry bool      `json:"clear_expiry"`
		EventIDs    *[]uint64 `json:"event_ids"`
	}

	var req UpdateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateCodeInput{
		Label:       req.Label,
		IsActive:    req.IsActive,
		IsMaster:    req.IsMaster,
		ClearExpiry: req.ClearExpiry,
		EventIDs:    req.EventIDs,
	}
	if req.ExpiresAt != nil {
		expiresAt, err := parseOptionalTime(*req.ExpiresAt)
		if err != nil {
			apierrors.BadRequest(c, "Invalid expires_at")
			return
		}
		if expiresAt == nil {
			input.ClearExpiry = true
		}
		input.ExpiresAt = expiresAt
	}

	code, err := h.adminService.UpdateCode(codeID, input)
	if err != nil {
		respondAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, code)
}

// DeleteCode removes an invite code.
func (h *AdminHandler) DeleteCode(c *gin.Context) {
	codeID, ok := utils.ParseIDParam(c, "codeId")
	if !ok {
		apierrors.BadRequest(c, "Invalid code ID")
		return
	}

	if err := h.adminService.DeleteCode(codeID); err != nil {
		respondAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Code deleted successfully"})
}

type eventRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	StartsAt    *string `json:"starts_at"`
}

func (r eventRequest) input() (services.EventInput, error) {
	input := services.EventInput{
		Name:        r.Name,
		Description: r.Description,
		Location:    r.Location,
	}
	if r.StartsAt != nil {
		startsAt, err := parseOptionalTime(*r.StartsAt)
		if err != nil {
			return input, err
		}
		input.StartsAt = startsAt
		input.ClearStarts = startsAt == nil
	}
	return input, nil
}

// CreateEvent creates an event. The admin becomes its first participant.
func (h *AdminHandler) CreateEvent(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	input, err := req.input()
	if err != nil {
		apierrors.BadRequest(c, "Invalid starts_at")
		return
	}

	event, err := h.eventService.CreateEvent(actor, input)
	if err != nil {
		respondAdminError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToEventDTO(*event))
}

// UpdateEvent edits an event.
func (h *AdminHandler) UpdateEvent(c *gin.Context) {
	eventID, ok := utils.ParseIDParam(c, "eventId")
	if !ok {
		apierrors.BadRequest(c, "Invalid event ID")
		return
	}

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	input, err := req.input()
	if err != nil {
		apierrors.BadRequest(c, "Invalid starts_at")
		return
	}

	event, err := h.eventService.UpdateEvent(eventID, input)
	if err != nil {
		respondAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEventDTO(*event))
}

// CloseEvent marks an event closed; master codes stop granting it.
func (h *AdminHandler) CloseEvent(c *gin.Context) {
	h.setClosed(c, true)
}

// ReopenEvent reopens a closed event.
func (h *AdminHandler) ReopenEvent(c *gin.Context) {
	h.setClosed(c, false)
}

func (h *AdminHandler) setClosed(c *gin.Context, closed bool) {
	eventID, ok := utils.ParseIDParam(c, "eventId")
	if !ok {
		apierrors.BadRequest(c, "Invalid event ID")
		return
	}

	event, err := h.eventService.SetClosed(eventID, closed)
	if err != nil {
		respondAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEventDTO(*event))
}

// UploadEventImage replaces the cover image of an event.
func (h *AdminHandler) UploadEventImage(c *gin.Context) {
	eventID, ok := utils.ParseIDParam(c, "eventId")
	if !ok {
		apierrors.BadRequest(c, "Invalid event ID")
		return
	}

	file, err := formImage(c, "image")
	if err != nil || file == nil {
		apierrors.BadRequest(c, "An image is required")
		return
	}
	defer file.Close()

	event, err := h.eventService.SetImage(eventID, file)
	if err != nil {
		respondAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEventDTO(*event))
}

// DeleteEvent removes an event and everything in it.
func (h *AdminHandler) DeleteEvent(c *gin.Context) {
	eventID, ok := utils.ParseIDParam(c, "eventId")
	if !ok {
		apierrors.BadRequest(c, "Invalid event ID")
		return
	}

	if err := h.eventService.DeleteEvent(eventID); err != nil {
		respondAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully"})
}

// ListUsers returns one page of users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	users, total, err := h.adminService.ListUsers(params)
	if err != nil {
		respondAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": dto.ToUserDTOs(users),
		"pagination": params.Response(total),
	})
}

// UpdateUserRole promotes or demotes a user.
func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	userID, ok := utils.ParseIDParam(c, "userId")
	if !ok {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	var req struct {
		Role models.UserRole `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Role is required")
		return
	}

	user, err := h.adminService.UpdateRole(actor, userID, req.Role)
	if err != nil {
		respondAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// DeleteUser removes a user.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	userID, ok := utils.ParseIDParam(c, "userId")
	if !ok {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	if err := h.adminService.DeleteUser(actor, userID); err != nil {
		respondAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// DeleteMessage removes any chat message.
func (h *AdminHandler) DeleteMessage(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	messageID, ok := utils.ParseIDParam(c, "messageId")
	if !ok {
		apierrors.BadRequest(c, "Invalid message ID")
		return
	}

	if err := h.chatService.Delete(0, messageID, actor); err != nil {
		respondAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully"})
}

// Metrics returns row counts and realtime connection numbers.
func (h *AdminHandler) Metrics(c *gin.Context) {
	metrics, err := h.adminService.Metrics()
	if err != nil {
		respondAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

func respondAdminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCodeNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrMessageNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrCodeTaken):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidCodeFormat),
		errors.Is(err, services.ErrCodeWithoutEvents),
		errors.Is(err, services.ErrUnknownEventIDs),
		errors.Is(err, services.ErrEventNameEmpty),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrCannotModifySelf):
		apierrors.BadRequest(c, err.Error())
	default:
		if !respondCommonError(c, err) {
			respondInternal(c, err)
		}
	}
}

