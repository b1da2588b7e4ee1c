package digest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lazypower/newsletter/internal/logger"
	"github.com/lazypower/newsletter/internal/status"
)

// Job is one scheduled run.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a cron schedule and records each outcome on a
// Status.
type Scheduler struct {
	cron    *cron.Cron
	loc     *time.Location
	status  *status.Status
	log     logger.Logger
	mu      sync.Mutex
	entryID cron.EntryID
	sched   cron.Schedule
	job     Job
	timeout time.Duration
}

// NewScheduler creates a Scheduler in loc (UTC when nil).
func NewScheduler(loc *time.Location, st *status.Status, log logger.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		loc:     loc,
		status:  st,
		log:     log,
		timeout: 10 * time.Minute,
	}
}

// Schedule registers job under a standard five-field cron spec. A previous
// schedule is replaced.
func (s *Scheduler) Schedule(spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("parsing cron spec %q: %w", spec, err)
	}
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
	}
	id := s.cron.Schedule(sched, cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		_ = s.run(ctx, job)
	}))
	s.entryID = id
	s.sched = sched
	s.job = job
	s.log.InfoObj("digest scheduled", "digest_scheduled", map[string]any{
		"cron": spec,
	})
	return nil
}

// RunNow runs the scheduled job immediately.
func (s *Scheduler) RunNow(ctx context.Context) error {
	s.mu.Lock()
	job := s.job
	s.mu.Unlock()
	if job == nil {
		return errors.New("no job scheduled")
	}
	return s.run(ctx, job)
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	start := time.Now()
	err := job(ctx)
	if err != nil {
		if s.status != nil {
			s.status.RecordFailure(err)
		}
		s.log.ErrorObj("digest run failed", "digest_failed", map[string]any{
			"error": err.Error(),
		})
		return err
	}
	if s.status != nil {
		s.status.RecordSuccess()
	}
	s.log.InfoObj("digest run finished", "digest_finished", map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// Next returns when the job fires next, zero when nothing is scheduled.
// Before Start it is computed from the schedule.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entryID == 0 {
		return time.Time{}
	}
	if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
		return next
	}
	return s.sched.Next(time.Now().In(s.loc))
}

// Start begins the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job to finish or ctx
// to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
