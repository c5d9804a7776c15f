package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func observed(level logger.LogLevel) (logger.Interface, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return newGormLogger(zap.New(core), level), logs
}

func query() (string, int64) {
	return "SELECT * FROM `events`", 2
}

func TestGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name    string
		level   logger.LogLevel
		elapsed time.Duration
		err     error
		want    zapcore.Level
		message string
	}{
		{"failed query", logger.Warn, time.Millisecond, errors.New("boom"), zapcore.ErrorLevel, "query failed"},
		{"slow query", logger.Warn, time.Second, nil, zapcore.WarnLevel, "slow query"},
		{"query at info", logger.Info, time.Millisecond, nil, zapcore.DebugLevel, "query"},
		{"not found is not a failure", logger.Info, time.Millisecond, gorm.ErrRecordNotFound, zapcore.DebugLevel, "query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, logs := observed(tt.level)
			l.Trace(context.Background(), time.Now().Add(-tt.elapsed), query, tt.err)

			entries := logs.All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.want, entries[0].Level)
			assert.Equal(t, tt.message, entries[0].Message)
			assert.Equal(t, "SELECT * FROM `events`", entries[0].ContextMap()["sql"])
		})
	}
}

func TestGormLogger_QuietLevels(t *testing.T) {
	l, logs := observed(logger.Warn)
	l.Trace(context.Background(), time.Now(), query, nil)
	l.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	l.Info(context.Background(), "migrating %s", "events")
	assert.Zero(t, logs.Len())

	silent := l.LogMode(logger.Silent)
	silent.Trace(context.Background(), time.Now().Add(-time.Second), query, errors.New("boom"))
	silent.Error(context.Background(), "ignored")
	assert.Zero(t, logs.Len())

	l.Warn(context.Background(), "deprecated %s", "column")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "deprecated column", logs.All()[0].Message)
}
