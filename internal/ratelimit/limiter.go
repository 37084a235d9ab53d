package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"lonewolfcast/ingestion/internal/metrics"

	"github.com/rs/zerolog/log"
)

// ErrRateLimitExceeded is returned once the daily quota is used up
var ErrRateLimitExceeded = errors.New("api daily call limit reached")

// minuteWindow is the length of the per-minute window
const minuteWindow = 60 * time.Second

// UsageStore persists the per-day call counter.
// repository.UsageRepository satisfies it.
type UsageStore interface {
	EnsureDay(ctx context.Context, day time.Time) (int, error)
	IncrementDay(ctx context.Context, day time.Time, limit int) (int, bool, error)
}

// Limiter enforces the daily quota (persisted, keyed by UTC date) and the
// per-minute threshold (process-local)
type Limiter struct {
	store        UsageStore
	maxPerDay    int
	maxPerMinute int

	mu          sync.Mutex
	minuteCount int
	windowStart time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option customises a Limiter
type Option func(*Limiter)

// WithClock overrides the time source and the sleep used while waiting on the
// minute window
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) {
		l.now = now
		l.sleep = sleep
	}
}

// New creates a limiter backed by store
func New(store UsageStore, maxPerDay, maxPerMinute int, opts ...Option) *Limiter {
	l := &Limiter{
		store:        store,
		maxPerDay:    maxPerDay,
		maxPerMinute: maxPerMinute,
		now:          time.Now,
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.windowStart = l.now()
	return l
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CanMakeCall reports whether today's counter is still below the daily max.
// The day's row is created on first use.
func (l *Limiter) CanMakeCall(ctx context.Context) (bool, error) {
	calls, err := l.store.EnsureDay(ctx, l.now())
	if err != nil {
		return false, fmt.Errorf("failed to read daily usage: %w", err)
	}
	return calls < l.maxPerDay, nil
}

// RecordCall adds one call to today's counter and to the minute window. It
// fails with ErrRateLimitExceeded when the counter already equals the daily max.
func (l *Limiter) RecordCall(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.now().Sub(l.windowStart) > minuteWindow {
		l.minuteCount = 0
		l.windowStart = l.now()
	}
	return l.record(ctx)
}

// Acquire gates one outbound call: it checks the daily quota, waits for the
// minute window if the threshold is reached, then records the call against
// both counters. Concurrent callers queue behind each other.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ok, err := l.CanMakeCall(ctx)
	if err != nil {
		return err
	}
	if !ok {
		metrics.RecordRateLimitRejection()
		log.Warn().Int("max_calls_per_day", l.maxPerDay).Msg("Daily API call limit reached")
		return ErrRateLimitExceeded
	}

	if err := l.waitMinuteWindow(ctx); err != nil {
		return err
	}

	return l.record(ctx)
}

// record increments the daily counter, then the minute counter. Must be
// called with mu held.
func (l *Limiter) record(ctx context.Context) error {
	calls, ok, err := l.store.IncrementDay(ctx, l.now(), l.maxPerDay)
	if err != nil {
		return fmt.Errorf("failed to record api call: %w", err)
	}
	if !ok {
		metrics.RecordRateLimitRejection()
		return ErrRateLimitExceeded
	}

	l.minuteCount++
	metrics.UpdateRateLimitStats(calls, l.minuteCount)
	return nil
}

// waitMinuteWindow must be called with mu held
func (l *Limiter) waitMinuteWindow(ctx context.Context) error {
	now := l.now()
	if now.Sub(l.windowStart) > minuteWindow {
		l.minuteCount = 0
		l.windowStart = now
		return nil
	}

	if l.minuteCount < l.maxPerMinute {
		return nil
	}

	wait := minuteWindow - now.Sub(l.windowStart)
	log.Info().
		Int("calls_in_window", l.minuteCount).
		Dur("wait", wait).
		Msg("Per-minute API limit reached, waiting for window")

	if wait > 0 {
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
	metrics.RecordRateLimitWait(wait.Seconds())

	l.minuteCount = 0
	l.windowStart = l.now()
	return nil
}

// Usage returns today's call count and the daily max
func (l *Limiter) Usage(ctx context.Context) (int, int, error) {
	calls, err := l.store.EnsureDay(ctx, l.now())
	if err != nil {
		return 0, l.maxPerDay, fmt.Errorf("failed to read daily usage: %w", err)
	}
	return calls, l.maxPerDay, nil
}

// MinuteCount returns calls made in the current minute window
func (l *Limiter) MinuteCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.minuteCount
}
