package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/noel-en-famille/internal/dto"
	"github.com/yukikurage/noel-en-famille/internal/models"
)

func TestEventAccess(t *testing.T) {
	env := setupTestEnv(t)
	member := env.createUser(t, "member", models.RoleUser)
	outsider := env.createUser(t, "outsider", models.RoleUser)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	event := env.createEvent(t, "Christmas Eve", member)

	tests := []struct {
		name       string
		user       *models.User
		path       string
		wantStatus int
	}{
		{"member reads summary", member, fmt.Sprintf("/api/events/%d/summary", event.ID), http.StatusOK},
		{"admin reads without membership", admin, fmt.Sprintf("/api/events/%d", event.ID), http.StatusOK},
		{"outsider is forbidden", outsider, fmt.Sprintf("/api/events/%d/summary", event.ID), http.StatusForbidden},
		{"outsider cannot list tasks", outsider, fmt.Sprintf("/api/events/%d/tasks", event.ID), http.StatusForbidden},
		{"unknown event", member, "/api/events/9999/summary", http.StatusNotFound},
		{"invalid event id", member, "/api/events/abc/summary", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.authed(t, tt.user, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestListEvents(t *testing.T) {
	env := setupTestEnv(t)
	member := env.createUser(t, "member", models.RoleUser)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	env.createEvent(t, "Mine", member)
	env.createEvent(t, "Other")

	var body struct {
		Events []dto.EventDTO `json:"events"`
	}

	w := env.authed(t, member, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Events, 1)
	assert.Equal(t, "Mine", body.Events[0].Name)

	w = env.authed(t, admin, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Events, 2)
}

func TestGetSummary_Counts(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.createUser(t, "alice", models.RoleUser)
	bob := env.createUser(t, "bob", models.RoleUser)
	event := env.createEvent(t, "Dinner", alice, bob)

	require.NoError(t, env.db.Create(&models.Contribution{EventID: event.ID, UserID: alice.ID, Title: "Wine"}).Error)
	require.NoError(t, env.db.Create(&models.Task{EventID: event.ID, CreatorID: alice.ID, Title: "Buy tree", Status: models.TaskStatusTodo}).Error)
	require.NoError(t, env.db.Create(&models.Task{EventID: event.ID, CreatorID: alice.ID, Title: "Done", Status: models.TaskStatusDone}).Error)

	w := env.authed(t, bob, http.MethodGet, fmt.Sprintf("/api/events/%d/summary", event.ID), "")
	require.Equal(t, http.StatusOK, w.Code)

	var summary dto.EventSummaryDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "Dinner", summary.Event.Name)
	assert.Equal(t, int64(2), summary.Counts.Participants)
	assert.Equal(t, int64(1), summary.Counts.Contributions)
	assert.Equal(t, int64(1), summary.Counts.OpenTasks)
}
