package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestScheduler_RunsJobOnceAfterDelay(t *testing.T) {
	s := NewScheduler(nil)
	defer s.Close()

	var runs atomic.Int32
	fired := make(chan time.Time, 1)
	start := time.Now()

	id, err := s.Schedule(Job{
		Name:           "follow-up",
		ConversationID: 7,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			fired <- time.Now()
			return nil
		},
	}, 30*time.Millisecond)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, s.Pending())

	select {
	case at := <-fired:
		assert.GreaterOrEqual(t, at.Sub(start), 30*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not fire")
	}

	// Give a duplicate firing a chance to show up
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, 0, s.Pending())
}

func TestScheduler_KeepsGivenID(t *testing.T) {
	s := NewScheduler(nil)
	defer s.Close()

	id, err := s.Schedule(Job{ID: "job-1", Run: func(context.Context) error { return nil }}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)
}

func TestScheduler_FailingJobDoesNotAffectOthers(t *testing.T) {
	s := NewScheduler(nil)
	defer s.Close()

	done := make(chan struct{})
	_, err := s.Schedule(Job{Run: func(context.Context) error { return errors.New("boom") }}, time.Millisecond)
	require.NoError(t, err)
	_, err = s.Schedule(Job{Run: func(context.Context) error { close(done); return nil }}, 10*time.Millisecond)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second job did not fire")
	}
}

func TestScheduler_CloseDropsPendingJobs(t *testing.T) {
	s := NewScheduler(nil)

	var runs atomic.Int32
	for i := 0; i < 3; i++ {
		_, err := s.Schedule(Job{Run: func(context.Context) error { runs.Add(1); return nil }}, 20*time.Millisecond)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, s.Pending())

	s.Close()
	assert.Equal(t, 0, s.Pending())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())

	_, err := s.Schedule(Job{Run: func(context.Context) error { return nil }}, time.Millisecond)
	assert.ErrorIs(t, err, ErrSchedulerClosed)

	// Idempotent
	s.Close()
}

func TestScheduler_CloseCancelsRunningJobs(t *testing.T) {
	s := NewScheduler(nil)

	started := make(chan struct{})
	_, err := s.Schedule(Job{Run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}, time.Millisecond)
	require.NoError(t, err)

	<-started
	s.Close() // returns only once the running job observed cancellation
}
