package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		respond func(*gin.Context, string)
		message string
		status  int
		code    string
		want    string
	}{
		{"unauthorized default", Unauthorized, "", http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required"},
		{"invalid code", InvalidCode, "", http.StatusUnauthorized, ErrCodeInvalidCode, "Invalid event code"},
		{"forbidden custom", Forbidden, "not a participant", http.StatusForbidden, ErrCodeForbidden, "not a participant"},
		{"conflict", Conflict, "name taken", http.StatusConflict, ErrCodeConflict, "name taken"},
		{"bad gateway", BadGateway, "", http.StatusBadGateway, ErrCodeUpstreamFailed, "Upstream service failed"},
		{"unavailable", ServiceUnavailable, "", http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Service temporarily unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			tt.respond(c, tt.message)

			assert.True(t, c.IsAborted())
			assert.Equal(t, tt.status, w.Code)
			var body APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.want, body.Message)
		})
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("GET /x: %w", NewAPIError(ErrCodeNotFound, "gone"))

	assert.True(t, HasCode(err, ErrCodeNotFound))
	assert.False(t, HasCode(err, ErrCodeForbidden))
	assert.False(t, HasCode(fmt.Errorf("plain"), ErrCodeNotFound))
}
