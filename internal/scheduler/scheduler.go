// Package scheduler runs periodic maintenance tasks on cron schedules.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"jobpulse-engine/internal/logging"
)

type Task func(ctx context.Context) error

// Scheduler wraps robfig/cron. A run is skipped while the previous run of
// the same task is still going.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	log  *logging.Logger
}

// New returns a stopped scheduler whose tasks receive ctx.
func New(ctx context.Context, log *logging.Logger) *Scheduler {
	log = log.Named("scheduler")
	cl := cronLogger{log}
	return &Scheduler{
		cron: cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		ctx:  ctx,
		log:  log,
	}
}

// Add registers task under name. An empty spec leaves the task disabled.
func (s *Scheduler) Add(name, spec string, task Task) error {
	if spec == "" {
		s.log.Info("task disabled", "task", name)
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() {
		if s.ctx.Err() != nil {
			return
		}
		if err := task(s.ctx); err != nil {
			s.log.Error("task failed", "task", name, "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduler: add %s (%q): %w", name, spec, err)
	}
	s.log.Info("task scheduled", "task", name, "spec", spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running tasks or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("stopped before running tasks finished")
	}
}

// Len is the number of scheduled tasks.
func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

type cronLogger struct{ l *logging.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "err", err)...)
}
