package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/noel-en-famille/internal/database"
	apierrors "github.com/yukikurage/noel-en-famille/internal/errors"
)

// Health reports liveness and database reachability.
func Health(c *gin.Context) {
	db := database.GetDB()
	if db == nil {
		apierrors.ServiceUnavailable(c, "Database not initialised")
		return
	}
	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		apierrors.ServiceUnavailable(c, "Database unreachable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
