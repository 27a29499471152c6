// Package scheduler runs the periodic maintenance jobs: purging expired
// soft-deleted loops, dropping dead refresh tokens and, when enabled,
// relooping loops whose reset rule is due.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/infrastructure/config"
	"github.com/doloop/core/internal/infrastructure/logger"
)

const (
	JobPurgeExpired = "purge_expired"
	JobCleanTokens  = "cleanup_tokens"
	JobReloopDaily  = "reloop_daily"
	JobReloopWeekly = "reloop_weekly"
)

const jobTimeout = 5 * time.Minute

// LoopJobs is the slice of the loop service the scheduler drives.
type LoopJobs interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
	ReloopByRule(ctx context.Context, rule entities.ResetRule) (int, error)
}

// TokenCleaner removes expired or revoked refresh tokens.
type TokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// JobObserver is notified after every run.
type JobObserver interface {
	ObserveJob(job string, err error)
}

type job func(ctx context.Context) (int64, error)

// Scheduler wraps a cron instance with named jobs.
type Scheduler struct {
	cron     *cron.Cron
	jobs     map[string]job
	observer JobObserver
	logger   *logger.Logger
}

// New parses the configured specs and registers the jobs. Nothing runs
// until Start.
func New(cfg config.SchedulerConfig, loops LoopJobs, tokens TokenCleaner, observer JobObserver, log *logger.Logger) (*Scheduler, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}

	log = log.WithComponent("scheduler")
	cronLog := cronLogger{log}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
			cron.WithLogger(cronLog),
		),
		jobs:     make(map[string]job),
		observer: observer,
		logger:   log,
	}

	if err := s.add(JobPurgeExpired, cfg.PurgeSpec, func(ctx context.Context) (int64, error) {
		n, err := loops.PurgeExpired(ctx, time.Now())
		return int64(n), err
	}); err != nil {
		return nil, err
	}

	if tokens != nil {
		if err := s.add(JobCleanTokens, cfg.PurgeSpec, tokens.CleanupExpiredTokens); err != nil {
			return nil, err
		}
	}

	if cfg.AutoReloop {
		if err := s.add(JobReloopDaily, cfg.DailySpec, reloopJob(loops, entities.ResetRuleDaily)); err != nil {
			return nil, err
		}
		if err := s.add(JobReloopWeekly, cfg.WeeklySpec, reloopJob(loops, entities.ResetRuleWeekly)); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func reloopJob(loops LoopJobs, rule entities.ResetRule) job {
	return func(ctx context.Context) (int64, error) {
		n, err := loops.ReloopByRule(ctx, rule)
		return int64(n), err
	}
}

func (s *Scheduler) add(name, spec string, fn job) error {
	if _, err := s.cron.AddFunc(spec, func() { s.Run(context.Background(), name) }); err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	s.jobs[name] = fn
	return nil
}

// Jobs returns the registered job names, sorted.
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes a job immediately. Errors are logged and reported to the
// observer, and also returned for callers running jobs by hand.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	fn, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}

	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	log := s.logger.WithFields("job", name)
	start := time.Now()
	n, err := fn(ctx)
	if s.observer != nil {
		s.observer.ObserveJob(name, err)
	}
	if err != nil {
		log.WithError(err).Errorw("Scheduled job failed")
		return err
	}

	log.Infow("Scheduled job finished", "affected", n, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Start runs the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.logger.Infow("Starting scheduler", "jobs", s.Jobs())
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	l *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
