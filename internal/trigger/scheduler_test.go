package trigger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewScheduler_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewScheduler("*/15 * * * *", nil, SchedulerOptions{})
	require.Error(t, err)

	_, err = NewScheduler("every quarter hour", &countingRunner{}, SchedulerOptions{})
	require.ErrorContains(t, err, "cron spec")

	_, err = NewScheduler("*/15 * * * * *", &countingRunner{}, SchedulerOptions{})
	require.Error(t, err, "seconds field is not accepted")
}

func TestScheduler_RunOnStart(t *testing.T) {
	t.Parallel()

	ran := make(chan struct{}, 1)
	r := &countingRunner{fn: func(context.Context) error {
		ran <- struct{}{}
		return nil
	}}
	logger := &recLogger{}
	s, err := NewScheduler("@every 1h", r, SchedulerOptions{RunOnStart: true, Logger: logger})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("run on start: no run")
	}
	require.Eventually(t, func() bool { return logger.contains("stage=schedule ok") }, 5*time.Second, 10*time.Millisecond)
	require.True(t, logger.contains("stage=schedule started"))
	require.WithinDuration(t, time.Now().Add(time.Hour), s.Next(), time.Minute)
}

func TestScheduler_NoRunOnStartByDefault(t *testing.T) {
	t.Parallel()

	r := &countingRunner{}
	s, err := NewScheduler("@every 1h", r, SchedulerOptions{})
	require.NoError(t, err)
	s.Start(context.Background())
	<-s.Stop().Done()
	require.Equal(t, int32(0), r.calls.Load())
}

func TestScheduler_SkipsWhileRunning(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	r := &countingRunner{fn: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}
	logger := &recLogger{}
	s, err := NewScheduler("@every 1h", r, SchedulerOptions{Logger: logger})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.fire()
	}()
	<-started

	s.fire() // returns at once: skipped
	require.True(t, logger.contains("stage=schedule skipped reason=still_running"))

	close(release)
	<-done
	require.Equal(t, int32(1), r.calls.Load())
}

func TestScheduler_RunErrorsAreLogged(t *testing.T) {
	t.Parallel()

	logger := &recLogger{}
	s, err := NewScheduler("@every 1h", &countingRunner{fn: func(context.Context) error { return errRun }}, SchedulerOptions{Logger: logger})
	require.NoError(t, err)

	s.fire()
	require.True(t, logger.contains("stage=schedule status=error"))
	require.True(t, logger.contains("http status 503"))
}

func TestScheduler_TimeoutAndParentContext(t *testing.T) {
	t.Parallel()

	var (
		hasDeadline bool
		value       any
	)
	type key struct{}
	r := &countingRunner{fn: func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		value = ctx.Value(key{})
		return nil
	}}
	s, err := NewScheduler("@every 1h", r, SchedulerOptions{Timeout: time.Minute})
	require.NoError(t, err)

	s.Start(context.WithValue(context.Background(), key{}, "parent"))
	<-s.Stop().Done()

	s.fire()
	require.True(t, hasDeadline)
	require.Equal(t, "parent", value)
}

func TestScheduler_RecoversPanics(t *testing.T) {
	t.Parallel()

	logger := &recLogger{}
	s, err := NewScheduler("@every 1h", &countingRunner{fn: func(context.Context) error { panic("boom") }}, SchedulerOptions{Logger: logger})
	require.NoError(t, err)

	require.NotPanics(t, s.fire)
	require.True(t, logger.contains(`msg="panic"`))
}
