package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/noel-en-famille/internal/errors"
)

// RequireCronSecret guards scheduler-triggered endpoints. The secret is
// accepted as a bearer token or in the X-Cron-Secret header. An empty
// configured secret disables the endpoint.
func RequireCronSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			apierrors.Unauthorized(c, "Cron endpoint is disabled")
			return
		}

		presented := c.GetHeader("X-Cron-Secret")
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			presented = strings.TrimPrefix(header, "Bearer ")
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			apierrors.Unauthorized(c, "Invalid cron secret")
			return
		}
		c.Next()
	}
}
