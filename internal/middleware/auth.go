package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/noel-en-famille/internal/constants"
	apierrors "github.com/yukikurage/noel-en-famille/internal/errors"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/services"
)

// Authenticator resolves an access token to its user.
type Authenticator interface {
	Authenticate(accessToken string) (*models.User, error)
}

// RequireAuth checks the access token from the cookie or a bearer header and
// loads the user it belongs to.
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := AccessToken(c)
		if token == "" {
			apierrors.Unauthorized(c, "")
			return
		}

		user, err := auth.Authenticate(token)
		if err != nil {
			apierrors.InvalidToken(c, "")
			return
		}

		// Store user in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyUserRole, user.Role)
		c.Next()
	}
}

// RequireAdmin rejects non-admin users. Must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}
		if !actor.IsAdmin() {
			apierrors.Forbidden(c, "Admin role required")
			return
		}
		c.Next()
	}
}

// AccessToken reads the access token from the cookie, falling back to an
// Authorization bearer header.
func AccessToken(c *gin.Context) string {
	if cookie, err := c.Cookie(constants.AccessTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// GetActor returns the authenticated user and role.
func GetActor(c *gin.Context) (services.Actor, bool) {
	userID, ok := GetUserID(c)
	if !ok {
		return services.Actor{}, false
	}
	role, _ := c.Get(constants.ContextKeyUserRole)
	r, _ := role.(models.UserRole)
	return services.Actor{ID: userID, Role: r}, true
}
