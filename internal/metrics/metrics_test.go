package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetrics_RecordsMatchedRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := NewRegistry()
	m := NewHTTPMetrics(reg)

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/api/events/:eventId", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/events/1", "/api/events/2", "/health"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/events/:eventId", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestsTotal))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.InFlightGauge))
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := NewRegistry()
	rt := NewRealtimeMetrics(reg)
	rt.ActiveConnections.Set(3)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "noel_realtime_active_connections 3")
}
