package itinerary

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/observability"
)

// ReportBuilder is the part of Reporter a Job needs.
type ReportBuilder interface {
	Run(ctx context.Context) (Report, error)
}

// Delivery is one notifier's result for a run.
type Delivery struct {
	Channel string `json:"channel"`
	Error   string `json:"error,omitempty"`
}

// JobResult is what one run produced and where it went.
type JobResult struct {
	Report     Report     `json:"report"`
	Deliveries []Delivery `json:"deliveries"`
}

// Job builds a report and pushes it to every notifier. Runs are serialized.
type Job struct {
	builder   ReportBuilder
	notifiers []domain.Notifier
	recipient string
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu    sync.Mutex
	ready atomic.Bool
}

// NewJob creates a Job delivering to recipient.
func NewJob(b ReportBuilder, notifiers []domain.Notifier, recipient string, logger *slog.Logger, metrics *observability.Metrics) *Job {
	return &Job{
		builder:   b,
		notifiers: notifiers,
		recipient: recipient,
		logger:    logger,
		metrics:   metrics,
	}
}

// MarkReady reports the job ready without waiting for a run.
func (j *Job) MarkReady() { j.ready.Store(true) }

// CheckReadiness returns nil once a run has read the calendar.
func (j *Job) CheckReadiness(_ context.Context) error {
	if !j.ready.Load() {
		return errors.New("no report has been built yet")
	}
	return nil
}

// RunOnce builds one report and delivers it. Only a calendar failure is
// returned as an error; notifier failures are logged, counted and listed in
// the result, and never retried.
func (j *Job) RunOnce(ctx context.Context) (JobResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	start := time.Now()
	rep, err := j.builder.Run(ctx)
	if err != nil {
		j.logger.Error("report failed", "error", err)
		return JobResult{}, err
	}
	j.ready.Store(true)

	res := JobResult{Report: rep, Deliveries: make([]Delivery, 0, len(j.notifiers))}
	for _, n := range j.notifiers {
		d := Delivery{Channel: n.Name()}
		outcome := "ok"
		if err := n.Push(ctx, j.recipient, rep.Text); err != nil {
			outcome = "error"
			d.Error = err.Error()
			j.logger.Error("notification failed", "channel", n.Name(), "error", err)
		}
		if j.metrics != nil {
			j.metrics.Notifications.WithLabelValues(n.Name(), outcome).Inc()
		}
		res.Deliveries = append(res.Deliveries, d)
	}

	j.logger.Info("report delivered",
		"target_date", rep.TargetDate.Format(time.DateOnly),
		"events", len(rep.Events),
		"channels", len(j.notifiers),
		"duration", time.Since(start),
	)
	return res, nil
}
