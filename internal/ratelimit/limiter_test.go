package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu         sync.Mutex
	days       map[string]int
	ensures    int
	increments int
}

func newMemStore() *memStore {
	return &memStore{days: make(map[string]int)}
}

func (s *memStore) key(day time.Time) string {
	return day.UTC().Format("2006-01-02")
}

func (s *memStore) EnsureDay(_ context.Context, day time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensures++
	return s.days[s.key(day)], nil
}

func (s *memStore) IncrementDay(_ context.Context, day time.Time, limit int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.increments++
	k := s.key(day)
	if s.days[k] >= limit {
		return s.days[k], false, nil
	}
	s.days[k]++
	return s.days[k], true, nil
}

type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

func newTestLimiter(store UsageStore, perDay, perMinute int) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)}
	return New(store, perDay, perMinute, WithClock(clock.Now, clock.Sleep)), clock
}

func TestLimiter_DailyLimit(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(newMemStore(), 3, 100)

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(ctx), "call %d should pass", i+1)
	}

	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, ErrRateLimitExceeded, "N+1th call should fail")

	ok, err := l.CanMakeCall(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	calls, limit, err := l.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, limit)
}

func TestLimiter_RecordCallAtLimit(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(newMemStore(), 1, 100)

	require.NoError(t, l.RecordCall(ctx))
	assert.ErrorIs(t, l.RecordCall(ctx), ErrRateLimitExceeded)
}

func TestLimiter_RecordCallCountsMinuteWindow(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter(newMemStore(), 100, 2)

	for i := 0; i < 3; i++ {
		require.NoError(t, l.RecordCall(ctx))
	}
	assert.Equal(t, 3, l.MinuteCount(), "Recorded calls count against the minute window")

	require.NoError(t, l.Acquire(ctx))
	require.Len(t, clock.slept, 1, "Acquire after recorded calls waits for the window")
	assert.Equal(t, 1, l.MinuteCount())

	clock.now = clock.now.Add(61 * time.Second)
	require.NoError(t, l.RecordCall(ctx))
	assert.Equal(t, 1, l.MinuteCount(), "Expired window restarts on record")
}

func TestLimiter_AcquireStoreRoundTrips(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	l, _ := newTestLimiter(store, 100, 100)

	require.NoError(t, l.Acquire(ctx))
	assert.Equal(t, 1, store.ensures)
	assert.Equal(t, 1, store.increments)
}

func TestLimiter_NewDayStartsFresh(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter(newMemStore(), 1, 100)

	require.NoError(t, l.Acquire(ctx))
	assert.ErrorIs(t, l.Acquire(ctx), ErrRateLimitExceeded)

	clock.now = clock.now.Add(24 * time.Hour)
	assert.NoError(t, l.Acquire(ctx), "New UTC day gets a new counter")
}

func TestLimiter_MinuteWindowWaits(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter(newMemStore(), 100, 2)

	require.NoError(t, l.Acquire(ctx))
	clock.now = clock.now.Add(10 * time.Second)
	require.NoError(t, l.Acquire(ctx))
	assert.Empty(t, clock.slept, "Calls under the threshold never wait")

	require.NoError(t, l.Acquire(ctx))
	require.Len(t, clock.slept, 1, "M+1th call waits for the window")
	assert.Equal(t, 50*time.Second, clock.slept[0])
	assert.Equal(t, 1, l.MinuteCount(), "Window resets after the wait")

	require.NoError(t, l.Acquire(ctx))
	assert.Len(t, clock.slept, 1, "Call right after reset does not wait")
}

func TestLimiter_WindowExpiresWithoutWait(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter(newMemStore(), 100, 1)

	require.NoError(t, l.Acquire(ctx))
	clock.now = clock.now.Add(61 * time.Second)
	require.NoError(t, l.Acquire(ctx))
	assert.Empty(t, clock.slept)
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := New(newMemStore(), 100, 1)

	require.NoError(t, l.Acquire(ctx))
	cancel()
	assert.ErrorIs(t, l.Acquire(ctx), context.Canceled)
}
