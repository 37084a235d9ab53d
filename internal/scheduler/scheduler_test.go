package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ExecutesJobAndHook(t *testing.T) {
	var ran, hooked atomic.Int32
	s := New([]Job{{Name: "leagues", Run: func(context.Context) error {
		ran.Add(1)
		return nil
	}}}, WithAfterRun(func(context.Context) { hooked.Add(1) }))

	require.NoError(t, s.Run(context.Background(), "leagues"))
	assert.EqualValues(t, 1, ran.Load())
	assert.EqualValues(t, 1, hooked.Load())
}

func TestRun_PropagatesErrorAndStillCallsHook(t *testing.T) {
	var hooked atomic.Int32
	s := New([]Job{{Name: "odds", Run: func(context.Context) error {
		return assert.AnError
	}}}, WithAfterRun(func(context.Context) { hooked.Add(1) }))

	err := s.Run(context.Background(), "odds")
	assert.ErrorIs(t, err, assert.AnError)
	assert.EqualValues(t, 1, hooked.Load())
}

func TestRun_UnknownJob(t *testing.T) {
	s := New(nil)
	assert.Error(t, s.Run(context.Background(), "nope"))
}

func TestRun_SkipsWhileAnotherJobRuns(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var evaluated atomic.Int32

	s := New([]Job{
		{Name: "matches", Run: func(context.Context) error {
			close(started)
			<-release
			return nil
		}},
		{Name: "evaluate", Run: func(context.Context) error {
			evaluated.Add(1)
			return nil
		}},
	})

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), "matches") }()
	<-started

	assert.ErrorIs(t, s.Run(context.Background(), "evaluate"), ErrBusy)
	assert.ErrorIs(t, s.Run(context.Background(), "matches"), ErrBusy)
	assert.EqualValues(t, 0, evaluated.Load())

	close(release)
	require.NoError(t, <-done)

	require.NoError(t, s.Run(context.Background(), "evaluate"))
	assert.EqualValues(t, 1, evaluated.Load())
}

func TestStart_RejectsInvalidSpec(t *testing.T) {
	s := New([]Job{{Name: "stats", Spec: "not a cron", Run: func(context.Context) error { return nil }}})

	err := s.Start(context.Background())
	assert.Error(t, err)
	s.Stop()
}

func TestStart_PollsUntilStop(t *testing.T) {
	var polls atomic.Int32
	s := New([]Job{{Name: "leagues", Spec: "0 2 * * *", Run: func(context.Context) error { return nil }}},
		WithPoller(10*time.Millisecond, func(context.Context) { polls.Add(1) }))

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return polls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
}
