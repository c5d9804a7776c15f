package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/noel-en-famille/internal/errors"
	"github.com/yukikurage/noel-en-famille/internal/logging"
	"github.com/yukikurage/noel-en-famille/internal/middleware"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/services"
	"github.com/yukikurage/noel-en-famille/internal/storage"
	"go.uber.org/zap"
)

// requestContext returns the actor and the event loaded by RequireEventAccess.
func requestContext(c *gin.Context) (services.Actor, *models.Event, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return services.Actor{}, nil, false
	}
	event, ok := middleware.GetEvent(c)
	if !ok {
		apierrors.InternalError(c, "Event not found in context")
		return services.Actor{}, nil, false
	}
	return actor, event, true
}

// respondCommonError handles errors shared by every resource and reports
// whether it wrote a response.
func respondCommonError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrAdminOnly):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInvalidInput):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, storage.ErrImageTooLarge),
		errors.Is(err, storage.ErrUnsupportedImage):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrEventNotFound):
		apierrors.NotFound(c, "Event not found")
	case errors.Is(err, services.ErrNotEventMember):
		apierrors.Forbidden(c, "You are not a participant of this event")
	default:
		return false
	}
	return true
}

// respondInternal logs an unexpected error and answers with a generic 500.
func respondInternal(c *gin.Context, err error) {
	logging.L().Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	_ = c.Error(err)
	apierrors.InternalError(c, "")
}

// isMultipart reports whether the request carries a multipart form.
func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// formImage opens the named file field of a multipart request, if present.
func formImage(c *gin.Context, field string) (multipart.File, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	return header.Open()
}

// formString returns a pointer to a form value when the field was sent.
func formString(c *gin.Context, field string) *string {
	v, ok := c.GetPostForm(field)
	if !ok {
		return nil
	}
	return &v
}

// parseOptionalTime accepts RFC 3339 timestamps and plain dates.
func parseOptionalTime(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
