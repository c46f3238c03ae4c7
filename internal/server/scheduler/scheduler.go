// Package scheduler runs the server's housekeeping jobs on a cron clock in
// the configured time zone.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/thechallenge/internal/logging"
	"github.com/robfig/cron/v3"
)

// jobTimeout bounds a single run of any job.
const jobTimeout = 10 * time.Second

// TokenPurger removes refresh tokens that can no longer be used.
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron   *cron.Cron
	logger logging.Logger
}

func New(loc *time.Location, l logging.Logger) *Scheduler {
	l = l.With("module", "scheduler")
	cl := cronLogger{l: l}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: l,
	}
}

// AddTokenPurge runs p on the given cron spec, e.g. "@hourly" or "0 3 * * *".
func (s *Scheduler) AddTokenPurge(spec string, p TokenPurger) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, s.purgeJob(p))
	if err != nil {
		return 0, fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}
	return id, nil
}

// AddHealthProbe calls ping every interval and reports the outcome to set.
func (s *Scheduler) AddHealthProbe(interval time.Duration, ping func(ctx context.Context) error, set func(ok bool)) (cron.EntryID, error) {
	if interval < time.Second {
		return 0, fmt.Errorf("probe interval must be at least 1s, got %s", interval)
	}
	return s.cron.Schedule(cron.Every(interval), cron.FuncJob(s.probeJob(ping, set))), nil
}

func (s *Scheduler) purgeJob(p TokenPurger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		n, err := p.PurgeExpiredTokens(ctx)
		if err != nil {
			s.logger.Error(ctx, "refresh token purge failed", "error", err)
			return
		}
		s.logger.Info(ctx, "expired refresh tokens purged", "count", n)
	}
}

func (s *Scheduler) probeJob(ping func(ctx context.Context) error, set func(ok bool)) func() {
	var last *bool
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		err := ping(ctx)
		ok := err == nil
		set(ok)

		if last == nil || *last != ok {
			if ok {
				s.logger.Info(ctx, "database reachable")
			} else {
				s.logger.Warn(ctx, "database unreachable", "error", err)
			}
		}
		last = &ok
	}
}

// Run starts the scheduler and blocks until ctx is cancelled and running
// jobs have finished.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info(ctx, "Starting scheduler", "jobs", len(s.cron.Entries()))
	s.cron.Start()

	<-ctx.Done()

	s.logger.Info(ctx, "Stopping scheduler...")
	<-s.cron.Stop().Done()
	return nil
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	l logging.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(context.Background(), msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(context.Background(), msg, append(keysAndValues, "error", err)...)
}
