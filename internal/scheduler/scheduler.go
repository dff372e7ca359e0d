// Package scheduler runs scans and macro refreshes on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"gem-scanner/internal/logger"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

type entry struct {
	id  cron.EntryID
	job Job
}

// Scheduler manages the cron jobs. Jobs receive the scheduler's context and
// are skipped while a previous run of the same job is still going.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context

	mu   sync.Mutex
	jobs map[string]entry
}

func New(ctx context.Context) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		ctx:  ctx,
		jobs: make(map[string]entry),
	}
}

// Register adds job under name with a six-field (seconds first) spec.
func (s *Scheduler) Register(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("register %s: already registered", name)
	}
	id, err := s.cron.AddFunc(spec, func() { _ = s.run(name, job) })
	if err != nil {
		return fmt.Errorf("register %s task: %w", name, err)
	}
	s.jobs[name] = entry{id: id, job: job}
	logger.Info(s.ctx, "Scheduled job", "job", name, "spec", spec)
	return nil
}

func (s *Scheduler) run(name string, job Job) error {
	op := logger.StartOperation(s.ctx, "scheduler."+name, "job", name)
	if err := job(op.GetContext()); err != nil {
		op.EndWithError(err)
		return err
	}
	op.End()
	return nil
}

// RunNow executes a registered job synchronously.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.run(name, e.job)
}

// Next returns the next activation time of a job.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	next := s.cron.Entry(e.id).Next
	return next, !next.IsZero()
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info(s.ctx, "Scheduler started", "jobs", len(s.jobs))
}

// Stop stops scheduling and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info(s.ctx, "Scheduler stopped")
}
