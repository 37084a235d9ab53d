package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"lonewolfcast/ingestion/internal/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ErrBusy is returned when a job is triggered while another one is running
var ErrBusy = errors.New("another job is running")

// Job is one cron-driven unit of work
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Scheduler runs sync jobs on cron specs, one at a time, and polls usage
// gauges on a fixed interval
type Scheduler struct {
	cron     *cron.Cron
	jobs     []Job
	running  sync.Mutex
	afterRun func(ctx context.Context)

	poll         func(ctx context.Context)
	pollInterval time.Duration
	ticker       *time.Ticker
	stopChan     chan struct{}
	stopOnce     sync.Once
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithAfterRun sets a hook called after every job that ran, successful or not
func WithAfterRun(fn func(ctx context.Context)) Option {
	return func(s *Scheduler) { s.afterRun = fn }
}

// WithPoller sets a function called every interval until Stop
func WithPoller(interval time.Duration, fn func(ctx context.Context)) Option {
	return func(s *Scheduler) {
		s.poll = fn
		s.pollInterval = interval
	}
}

// New creates a scheduler for jobs. Jobs with an empty Spec are not scheduled
// but can still be triggered through Run.
func New(jobs []Job, opts ...Option) *Scheduler {
	s := &Scheduler{
		cron:     cron.New(),
		jobs:     jobs,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers every job with cron and starts the poller
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Int("jobs", len(s.jobs)).Msg("Scheduler starting...")

	for _, job := range s.jobs {
		if job.Spec == "" {
			log.Info().Str("job", job.Name).Msg("Job has no schedule, manual trigger only")
			continue
		}

		job := job
		if _, err := s.cron.AddFunc(job.Spec, func() {
			if err := s.Run(ctx, job.Name); err != nil && !errors.Is(err, ErrBusy) {
				log.Error().Err(err).Str("job", job.Name).Msg("Scheduled job failed")
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule %s job (%q): %w", job.Name, job.Spec, err)
		}

		log.Info().
			Str("job", job.Name).
			Str("schedule", job.Spec).
			Msg("Job scheduled")
	}

	s.cron.Start()

	if s.poll != nil && s.pollInterval > 0 {
		s.ticker = time.NewTicker(s.pollInterval)
		go s.pollLoop(ctx)
		log.Info().Dur("interval", s.pollInterval).Msg("Usage polling started")
	}

	return nil
}

// Stop stops cron and the poller, waiting for a running job to return
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	if s.ticker != nil {
		s.ticker.Stop()
	}

	s.stopOnce.Do(func() { close(s.stopChan) })
	log.Info().Msg("Scheduler stopped")
}

// Run executes the named job now. It returns ErrBusy without running when
// another job holds the lock.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	var job *Job
	for i := range s.jobs {
		if s.jobs[i].Name == name {
			job = &s.jobs[i]
			break
		}
	}
	if job == nil {
		return fmt.Errorf("unknown job %q", name)
	}

	if !s.running.TryLock() {
		metrics.RecordJobRun(name, "skipped")
		log.Warn().Str("job", name).Msg("Skipping job, another job is still running")
		return ErrBusy
	}
	defer s.running.Unlock()

	start := time.Now()
	log.Info().Str("job", name).Msg("Job started")

	err := job.Run(ctx)
	if s.afterRun != nil {
		s.afterRun(ctx)
	}

	if err != nil {
		metrics.RecordJobRun(name, "error")
		return fmt.Errorf("job %s: %w", name, err)
	}

	metrics.RecordJobRun(name, "success")
	log.Info().
		Str("job", name).
		Dur("duration", time.Since(start)).
		Msg("Job completed")
	return nil
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	s.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Context cancelled, stopping usage polling")
			return
		case <-s.stopChan:
			return
		case <-s.ticker.C:
			s.poll(ctx)
		}
	}
}
