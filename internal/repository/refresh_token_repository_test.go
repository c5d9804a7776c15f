package repository

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

const revokeSQL = "UPDATE `refresh_tokens` SET `revoked_at`=? WHERE id = ? AND revoked_at IS NULL"

func TestRevoke(t *testing.T) {
	at := time.Date(2025, 12, 24, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		result  func(*sqlmock.ExpectedExec)
		want    bool
		wantErr bool
	}{
		{
			name:   "live token",
			result: func(e *sqlmock.ExpectedExec) { e.WillReturnResult(sqlmock.NewResult(0, 1)) },
			want:   true,
		},
		{
			name:   "already revoked",
			result: func(e *sqlmock.ExpectedExec) { e.WillReturnResult(sqlmock.NewResult(0, 0)) },
			want:   false,
		},
		{
			name:    "database error",
			result:  func(e *sqlmock.ExpectedExec) { e.WillReturnError(errors.New("connection reset")) },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewRefreshTokenRepository(db)

			exec := mock.ExpectExec(regexp.QuoteMeta(revokeSQL)).WithArgs(sqlmock.AnyArg(), "jti-1")
			tt.result(exec)

			revoked, err := repo.Revoke("jti-1", at)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, revoked)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRevokeAllForUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `refresh_tokens` SET `revoked_at`=? WHERE user_id = ? AND revoked_at IS NULL")).
		WithArgs(sqlmock.AnyArg(), 7).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.RevokeAllForUser(7, time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)
	before := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `refresh_tokens` WHERE expires_at < ?")).
		WithArgs(before).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(before)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
