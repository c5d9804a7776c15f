package database

import (
	"fmt"

	"github.com/yukikurage/noel-en-famille/internal/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AddIndexes adds the composite indexes the struct tags cannot express.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Chat pagination walks messages of one event by id
		{"chat_messages", "idx_chat_messages_event_id_id", "event_id, id"},

		// Reminder scan
		{"tasks", "idx_tasks_status_due_date", "status, due_date"},

		// Summary counts
		{"polls", "idx_polls_event_id_is_closed", "event_id, is_closed"},
		{"event_users", "idx_event_users_user_id", "user_id"},

		// Refresh token cleanup
		{"refresh_tokens", "idx_refresh_tokens_expires_at", "expires_at"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.table, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		logging.L().Debug("created index", zap.String("index", idx.name), zap.String("table", idx.table))
	}

	return nil
}
