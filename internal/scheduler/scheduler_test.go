package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/noel-en-famille/internal/services"
)

type fakeSender struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSender) Send(ctx context.Context) (*services.ReminderResult, error) {
	f.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("missing deadline")
	}
	return &services.ReminderResult{Sent: 1}, f.err
}

type fakePurger struct {
	calls atomic.Int32
	err   error
}

func (f *fakePurger) PurgeExpiredTokens() (int64, error) {
	f.calls.Add(1)
	return 3, f.err
}

func TestAdd_RejectsInvalidSpec(t *testing.T) {
	s := New(time.Second)

	err := s.Add("reminders", "every tuesday", ReminderJob(&fakeSender{}))

	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestAdd_AcceptsStandardAndDescriptorSpecs(t *testing.T) {
	s := New(time.Second)

	require.NoError(t, s.Add("reminders", "0 8 * * *", ReminderJob(&fakeSender{})))
	require.NoError(t, s.Add("purge", TokenPurgeSpec, TokenPurgeJob(&fakePurger{})))

	assert.Equal(t, 2, s.Len())
}

func TestWrap_RunsJobWithTimeout(t *testing.T) {
	s := New(time.Second)
	sender := &fakeSender{}

	s.wrap("reminders", ReminderJob(sender))()

	assert.Equal(t, int32(1), sender.calls.Load())
}

func TestWrap_SwallowsJobErrors(t *testing.T) {
	s := New(time.Second)
	purger := &fakePurger{err: errors.New("db down")}

	assert.NotPanics(t, s.wrap("purge", TokenPurgeJob(purger)))
	assert.Equal(t, int32(1), purger.calls.Load())
}

func TestTokenPurgeJob_SkipsCancelledContext(t *testing.T) {
	purger := &fakePurger{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := TokenPurgeJob(purger)(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), purger.calls.Load())
}

func TestStartStop(t *testing.T) {
	s := New(time.Second)
	sender := &fakeSender{}
	require.NoError(t, s.Add("reminders", "@every 1s", ReminderJob(sender)))

	s.Start()
	assert.Eventually(t, func() bool { return sender.calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
