// Package forecast runs the ordered weather provider tiers for a place.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/observability"
)

// Chain tries providers in order; the first record with data wins.
type Chain struct {
	providers []domain.WeatherProvider
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewChain creates a chain over providers, tried in the given order.
func NewChain(providers []domain.WeatherProvider, metrics *observability.Metrics, logger *slog.Logger) *Chain {
	return &Chain{
		providers: append([]domain.WeatherProvider(nil), providers...),
		metrics:   metrics,
		logger:    logger,
	}
}

// Sources lists the registered tiers in order.
func (c *Chain) Sources() []domain.Source {
	out := make([]domain.Source, len(c.providers))
	for i, p := range c.providers {
		out[i] = p.Name()
	}
	return out
}

// Resolve returns the first tier's record that has data, or an
// Unavailable result carrying every tier's failure.
func (c *Chain) Resolve(ctx context.Context, place domain.Place, w domain.ForecastWindow) domain.ForecastResult {
	if len(c.providers) == 0 {
		return domain.NoForecast(domain.Unavailable("", domain.KindNotConfigured, errors.New("no providers registered")))
	}

	errs := make([]error, 0, len(c.providers))
	for _, p := range c.providers {
		if ctx.Err() != nil {
			errs = append(errs, domain.Unavailable(p.Name(), domain.ClassifyTransport(ctx.Err()), ctx.Err()))
			break
		}

		start := time.Now()
		rec, err := c.try(ctx, p, place, w)
		c.record(ctx, p.Name(), place, start, err)
		if err != nil {
			c.logger.Debug("provider failed",
				"provider", p.Name(),
				"query", place.Query,
				"window", w.String(),
				"kind", domain.KindOf(err),
				"error", err,
			)
			errs = append(errs, err)
			continue
		}
		return domain.Found(rec)
	}
	return domain.NoForecast(fmt.Errorf("%d providers failed: %w", len(errs), errors.Join(errs...)))
}

// try calls one provider, turning a panic or an empty record into a
// provider error.
func (c *Chain) try(ctx context.Context, p domain.WeatherProvider, place domain.Place, w domain.ForecastWindow) (rec domain.ForecastRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("provider panicked", "provider", p.Name(), "panic", r)
			rec, err = domain.ForecastRecord{}, domain.Unavailable(p.Name(), domain.KindPanic, fmt.Errorf("panic: %v", r))
		}
	}()

	rec, err = p.TryResolve(ctx, place, w)
	if err != nil {
		var pe *domain.ProviderError
		if !errors.As(err, &pe) {
			err = domain.Unavailable(p.Name(), domain.ClassifyTransport(err), err)
		}
		return domain.ForecastRecord{}, err
	}
	if !rec.HasData() {
		return domain.ForecastRecord{}, domain.Unavailable(p.Name(), domain.KindEmpty, errors.New("record has no values"))
	}
	if rec.Source == "" {
		rec.Source = p.Name()
	}
	return rec, nil
}

func (c *Chain) record(ctx context.Context, src domain.Source, place domain.Place, start time.Time, err error) {
	attempt := domain.AttemptFromError(domain.Attempt{
		Stage:    "forecast",
		Provider: string(src),
		Query:    queryKey(place),
		Duration: time.Since(start),
	}, err)
	domain.TraceFrom(ctx).Add(attempt)
	if c.metrics != nil {
		c.metrics.ProviderAttempts.WithLabelValues(string(src), attempt.Outcome).Inc()
	}
}

// queryKey describes what a provider was asked about, for traces.
func queryKey(place domain.Place) string {
	if name := place.Area.MostSpecific(); name != "" {
		return name + " " + place.Coordinate.String()
	}
	return place.Coordinate.String()
}
