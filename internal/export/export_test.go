package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/noel-en-famille/internal/models"
)

func TestContributionsCSV(t *testing.T) {
	created := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	contributions := []models.Contribution{
		{
			ID: 1, Title: "Bûche, chocolat", Category: models.CategoryFood, Quantity: "2",
			User: models.User{Name: "Mamie"}, Ingredient: &models.MenuIngredient{Name: "Chocolat"},
			CreatedAt: created,
		},
		{ID: 2, Title: "=HYPERLINK(\"x\")", Category: models.CategoryOther, User: models.User{Name: "Paul"}, CreatedAt: created},
	}

	var buf bytes.Buffer
	require.NoError(t, ContributionsCSV(&buf, contributions))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, contributionHeader, records[0])
	assert.Equal(t, []string{"1", "Bûche, chocolat", "food", "2", "", "Mamie", "Chocolat", "", "2025-12-01T10:00:00Z"}, records[1])
	assert.Equal(t, "'=HYPERLINK(\"x\")", records[2][1])
}

func TestTasksICS(t *testing.T) {
	due := time.Date(2025, 12, 24, 18, 30, 0, 0, time.UTC)
	email := "paul@example.com"
	tasks := []models.Task{
		{ID: 7, Title: "Acheter le sapin", Status: models.TaskStatusTodo, DueDate: &due,
			Assignee: &models.User{Name: "Paul", Email: &email}},
		{ID: 8, Title: "Décorer", Description: "Guirlandes", Status: models.TaskStatusDone},
	}

	var buf bytes.Buffer
	err := TasksICS(&buf, &models.Event{Name: "Noël 2025"}, tasks, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VTODO"))
	assert.Contains(t, out, "UID:task-7@noel-en-famille")
	assert.Contains(t, out, "SUMMARY:Acheter le sapin")
	assert.Contains(t, out, "DUE:20251224T183000Z")
	assert.Contains(t, out, "STATUS:NEEDS-ACTION")
	assert.Contains(t, out, "STATUS:COMPLETED")
	assert.Contains(t, out, "mailto:paul@example.com")
}
