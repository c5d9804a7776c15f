package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequireCronSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		headers map[string]string
		want    int
	}{
		{"disabled", "", map[string]string{"X-Cron-Secret": ""}, http.StatusUnauthorized},
		{"missing", "s3cret", nil, http.StatusUnauthorized},
		{"wrong header", "s3cret", map[string]string{"X-Cron-Secret": "nope"}, http.StatusUnauthorized},
		{"header", "s3cret", map[string]string{"X-Cron-Secret": "s3cret"}, http.StatusOK},
		{"bearer", "s3cret", map[string]string{"Authorization": "Bearer s3cret"}, http.StatusOK},
		{"bearer wins over header", "s3cret", map[string]string{
			"Authorization": "Bearer nope",
			"X-Cron-Secret": "s3cret",
		}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/cron", RequireCronSecret(tt.secret), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/cron", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestIPRateLimiter_Allow(t *testing.T) {
	l := NewIPRateLimiter(3)
	now := time.Date(2025, 12, 24, 18, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("10.0.0.1"), "attempt %d", i+1)
	}
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "other clients keep their own bucket")

	now = now.Add(21 * time.Second)
	assert.True(t, l.Allow("10.0.0.1"), "one token refills every 20s")
	assert.False(t, l.Allow("10.0.0.1"))
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	l := NewIPRateLimiter(1)
	r := gin.New()
	r.POST("/login", l.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send().Code)
	w := send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "TOO_MANY_REQUESTS")
}

func TestRequestLogger_RequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	generated := w.Header().Get(requestIDHeader)
	require.NotEmpty(t, generated)

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()), Recovery(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
