package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/noel-en-famille/internal/constants"
	apierrors "github.com/yukikurage/noel-en-famille/internal/errors"
	"github.com/yukikurage/noel-en-famille/internal/logging"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/services"
	"github.com/yukikurage/noel-en-famille/internal/utils"
	"go.uber.org/zap"
)

// AccessChecker decides whether an actor may see an event.
type AccessChecker interface {
	CheckAccess(actor services.Actor, eventID uint64) (*models.Event, error)
}

// RequireEventAccess checks that the user participates in the event named by
// the :eventId parameter. Unknown events are 404, foreign events 403.
func RequireEventAccess(checker AccessChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := utils.ParseIDParam(c, "eventId")
		if !ok {
			apierrors.BadRequest(c, "Invalid event ID")
			return
		}

		actor, ok := GetActor(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		event, err := checker.CheckAccess(actor, eventID)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrEventNotFound):
				apierrors.NotFound(c, "Event not found")
			case errors.Is(err, services.ErrNotEventMember):
				apierrors.Forbidden(c, "You are not a participant of this event")
			default:
				logging.L().Error("event access check failed", zap.Uint64("event_id", eventID), zap.Error(err))
				apierrors.InternalError(c, "")
			}
			return
		}

		// Store event in context
		c.Set(constants.ContextKeyEvent, event)
		c.Next()
	}
}

// GetEvent returns the event loaded by RequireEventAccess.
func GetEvent(c *gin.Context) (*models.Event, bool) {
	v, exists := c.Get(constants.ContextKeyEvent)
	if !exists {
		return nil, false
	}
	event, ok := v.(*models.Event)
	return event, ok
}
