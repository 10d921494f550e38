package domain

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Outcome tags a ForecastResult.
type Outcome int

const (
	OutcomeFound Outcome = iota
	OutcomeLocationNotFound
	OutcomeUnavailable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeLocationNotFound:
		return "location_not_found"
	default:
		return "unavailable"
	}
}

// ForecastResult is what the chain returns for one event: a record, or the
// reason there isn't one. Err is nil only when Outcome is OutcomeFound.
type ForecastResult struct {
	Outcome Outcome
	Record  ForecastRecord
	Err     error
}

// Found wraps a usable record.
func Found(rec ForecastRecord) ForecastResult {
	return ForecastResult{Outcome: OutcomeFound, Record: rec}
}

// NoForecast reports that every provider tier was exhausted.
func NoForecast(err error) ForecastResult {
	return ForecastResult{Outcome: OutcomeUnavailable, Err: err}
}

// NoLocation reports that the event's location did not resolve.
func NoLocation(err error) ForecastResult {
	return ForecastResult{Outcome: OutcomeLocationNotFound, Err: err}
}

// Attempt is one step of a resolution, kept for diagnostics only.
type Attempt struct {
	Stage    string        `json:"stage"` // "forward", "reverse", "forecast"
	Provider string        `json:"provider"`
	Query    string        `json:"query"`
	Outcome  string        `json:"outcome"` // "ok" or a FailureKind
	Status   int           `json:"status,omitempty"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Trace collects attempts for one resolution. It is safe for concurrent use.
type Trace struct {
	mu       sync.Mutex
	attempts []Attempt
}

// Add appends an attempt. A nil trace discards it.
func (t *Trace) Add(a Attempt) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.attempts = append(t.attempts, a)
	t.mu.Unlock()
}

// Attempts returns a copy of the recorded attempts.
func (t *Trace) Attempts() []Attempt {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Attempt, len(t.attempts))
	copy(out, t.attempts)
	return out
}

type traceKey struct{}

// WithTrace attaches a trace to ctx.
func WithTrace(ctx context.Context, t *Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

// TraceFrom returns the trace attached to ctx, or nil.
func TraceFrom(ctx context.Context) *Trace {
	t, _ := ctx.Value(traceKey{}).(*Trace)
	return t
}

// AttemptFromError fills Outcome, Status and Detail from err.
func AttemptFromError(a Attempt, err error) Attempt {
	if err == nil {
		a.Outcome = "ok"
		return a
	}
	a.Outcome = string(KindOf(err))
	a.Detail = err.Error()
	var pe *ProviderError
	if errors.As(err, &pe) {
		a.Status = pe.Status
	}
	return a
}
