// Package scheduler triggers the daily report on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/itinerary"
)

// Job is what the scheduler runs.
type Job interface {
	RunOnce(ctx context.Context) (itinerary.JobResult, error)
}

// Scheduler runs a Job on a six-field (seconds first) cron schedule in a
// fixed zone. A firing that overlaps a run still in progress is skipped.
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	loc      *time.Location
	job      Job
	logger   *slog.Logger
}

// New parses the cron expression and prepares the scheduler. It does not start it.
func New(expr string, loc *time.Location, job Job, logger *slog.Logger) (*Scheduler, error) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}

	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return &Scheduler{cron: c, schedule: sched, loc: loc, job: job, logger: logger}, nil
}

// Next returns the first firing after t, in the scheduler's zone.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.loc))
}

// Start runs the schedule until ctx is cancelled, then waits for a run in
// progress to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron.Schedule(s.schedule, cron.FuncJob(func() { s.fire(ctx) }))
	s.cron.Start()
	s.logger.Info("scheduler started", "next_run", s.Next(time.Now()))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	res, err := s.job.RunOnce(ctx)
	if err != nil {
		s.logger.Error("scheduled run failed", "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Info("scheduled run finished",
		"target_date", res.Report.TargetDate.Format(time.DateOnly),
		"events", len(res.Report.Events),
		"duration", time.Since(start),
		"next_run", s.Next(time.Now()),
	)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
