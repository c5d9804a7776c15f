package scheduler

import (
	"context"

	"github.com/yukikurage/noel-en-famille/internal/logging"
	"github.com/yukikurage/noel-en-famille/internal/services"
	"go.uber.org/zap"
)

// TokenPurgeSpec is how often expired refresh tokens are deleted.
const TokenPurgeSpec = "@every 1h"

// ReminderSender sends due-task reminders.
type ReminderSender interface {
	Send(ctx context.Context) (*services.ReminderResult, error)
}

// TokenPurger deletes expired refresh tokens.
type TokenPurger interface {
	PurgeExpiredTokens() (int64, error)
}

// ReminderJob sends reminders with the same service as the cron endpoint.
func ReminderJob(sender ReminderSender) Job {
	return func(ctx context.Context) error {
		_, err := sender.Send(ctx)
		return err
	}
}

// TokenPurgeJob removes expired and revoked refresh tokens.
func TokenPurgeJob(purger TokenPurger) Job {
	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := purger.PurgeExpiredTokens()
		if err != nil {
			return err
		}
		if n > 0 {
			logging.L().Info("purged refresh tokens", zap.Int64("count", n))
		}
		return nil
	}
}
