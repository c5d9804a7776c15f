package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/yukikurage/noel-en-famille/internal/constants"
	"github.com/yukikurage/noel-en-famille/internal/logging"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/repository"
	"go.uber.org/zap"
)

// Mailer delivers a plain text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ReminderResult summarises one reminder run.
type ReminderResult struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ReminderService emails assignees about tasks due soon.
type ReminderService struct {
	taskRepo repository.TaskRepository
	mailer   Mailer
	clock    clockwork.Clock
}

// NewReminderService creates a new ReminderService.
func NewReminderService(taskRepo repository.TaskRepository, mailer Mailer, clock clockwork.Clock) *ReminderService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ReminderService{taskRepo: taskRepo, mailer: mailer, clock: clock}
}

// Send emails every assignee with an address one digest of their open tasks
// due within the reminder window. Users without an email are skipped.
func (s *ReminderService) Send(ctx context.Context) (*ReminderResult, error) {
	now := s.clock.Now()
	tasks, err := s.taskRepo.ListDueBetween(now, now.Add(constants.ReminderWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to list due tasks: %w", err)
	}

	byUser := make(map[uint64][]models.Task)
	users := make(map[uint64]*models.User)
	for _, t := range tasks {
		if t.AssigneeID == nil || t.Assignee == nil {
			continue
		}
		byUser[*t.AssigneeID] = append(byUser[*t.AssigneeID], t)
		users[*t.AssigneeID] = t.Assignee
	}

	ids := make([]uint64, 0, len(byUser))
	for id := range byUser {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	result := &ReminderResult{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		user := users[id]
		if user.Email == nil || strings.TrimSpace(*user.Email) == "" {
			result.Skipped++
			continue
		}

		subject, body := reminderMessage(user, byUser[id])
		if err := s.mailer.Send(ctx, *user.Email, subject, body); err != nil {
			logging.L().Warn("failed to send reminder",
				zap.Uint64("user_id", id),
				zap.Error(err),
			)
			result.Failed++
			continue
		}
		result.Sent++
	}

	logging.L().Info("reminders processed",
		zap.Int("tasks", len(tasks)),
		zap.Int("sent", result.Sent),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func reminderMessage(user *models.User, tasks []models.Task) (string, string) {
	subject := "Reminder: 1 task due soon"
	if len(tasks) > 1 {
		subject = fmt.Sprintf("Reminder: %d tasks due soon", len(tasks))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\nThe following tasks are due within the next 24 hours:\n\n", user.Name)
	for _, t := range tasks {
		line := "- " + t.Title
		if t.Event.Name != "" {
			line += " (" + t.Event.Name + ")"
		}
		if t.DueDate != nil {
			line += ", due " + t.DueDate.Format("Mon 2 Jan 15:04")
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\nSee you soon!\n")
	return subject, b.String()
}
