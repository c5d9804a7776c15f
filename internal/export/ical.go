package export

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/yukikurage/noel-en-famille/internal/models"
)

// TasksICS writes the tasks of an event as an iCalendar of VTODO entries.
func TasksICS(w io.Writer, event *models.Event, tasks []models.Task, now time.Time) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Noel en Famille//Tasks//FR")
	cal.SetName(event.Name)

	for _, t := range tasks {
		todo := cal.AddTodo(fmt.Sprintf("task-%d@noel-en-famille", t.ID))
		todo.SetDtStampTime(now.UTC())
		todo.SetCreatedTime(t.CreatedAt.UTC())
		todo.SetModifiedAt(t.UpdatedAt.UTC())
		todo.SetSummary(t.Title)
		if t.Description != "" {
			todo.SetDescription(t.Description)
		}
		if t.DueDate != nil {
			todo.SetProperty(ics.ComponentPropertyDue, t.DueDate.UTC().Format(icsTimeFormat))
		}
		if t.Assignee != nil && t.Assignee.Email != nil {
			todo.SetProperty(ics.ComponentPropertyAttendee, "mailto:"+*t.Assignee.Email, ics.WithCN(t.Assignee.Name))
		}
		if t.Status == models.TaskStatusDone {
			todo.SetProperty(ics.ComponentPropertyStatus, "COMPLETED")
			todo.SetProperty(ics.ComponentPropertyPercentComplete, "100")
		} else {
			todo.SetProperty(ics.ComponentPropertyStatus, "NEEDS-ACTION")
		}
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

const icsTimeFormat = "20060102T150405Z"
