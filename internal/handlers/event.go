package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/noel-en-famille/internal/dto"
	apierrors "github.com/yukikurage/noel-en-famille/internal/errors"
	"github.com/yukikurage/noel-en-famille/internal/middleware"
	"github.com/yukikurage/noel-en-famille/internal/services"
)

// EventHandler serves the read side of events for participants.
type EventHandler struct {
	eventService *services.EventService
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(eventService *services.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// ListEvents returns the events of the current user. Admins see all events.
func (h *EventHandler) ListEvents(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	events, err := h.eventService.ListForActor(actor)
	if err != nil {
		respondInternal(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": dto.ToEventDTOs(events)})
}

// GetEvent returns the event loaded by the access middleware.
func (h *EventHandler) GetEvent(c *gin.Context) {
	_, event, ok := requestContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.ToEventDTO(*event))
}

// GetSummary returns event metadata with aggregate counts.
func (h *EventHandler) GetSummary(c *gin.Context) {
	_, event, ok := requestContext(c)
	if !ok {
		return
	}

	counts, err := h.eventService.Summary(event.ID)
	if err != nil {
		respondInternal(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EventSummaryDTO{
		Event:  dto.ToEventDTO(*event),
		Counts: *counts,
	})
}

// ListParticipants returns the members of an event.
func (h *EventHandler) ListParticipants(c *gin.Context) {
	_, event, ok := requestContext(c)
	if !ok {
		return
	}

	members, err := h.eventService.Participants(event.ID)
	if err != nil {
		respondInternal(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"participants": dto.ToParticipantDTOs(members)})
}
