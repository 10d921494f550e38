package itinerary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/location"
)

// DebugResult explains how one location text resolved.
type DebugResult struct {
	Query      string                    `json:"query"`
	Window     domain.ForecastWindow     `json:"window"`
	Coordinate *domain.Coordinate        `json:"coordinate,omitempty"`
	Area       domain.AdministrativeArea `json:"area"`
	Composite  string                    `json:"composite,omitempty"`
	Outcome    string                    `json:"outcome"`
	Source     domain.Source             `json:"source,omitempty"`
	Forecast   string                    `json:"forecast"`
	Error      string                    `json:"error,omitempty"`
	Attempts   []domain.Attempt          `json:"attempts"`
}

// Debug resolves text the way a report would, for the target date at hour
// (midday when hour is negative), and returns every step taken.
func (r *Reporter) Debug(ctx context.Context, text string, hour int) (DebugResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return DebugResult{}, fmt.Errorf("location is required")
	}
	if hour > 23 {
		return DebugResult{}, fmt.Errorf("hour %d out of range 0-23", hour)
	}

	target, offset := domain.ResolveTargetDate(r.Today())
	w := domain.MiddayWindow(target, offset)
	if hour >= 0 {
		w = domain.HourWindow(target, hour, offset)
	}

	trace := &domain.Trace{}
	ctx = domain.WithTrace(ctx, trace)
	start := time.Now()

	resolver := location.NewResolver(r.runGeocoder(), r.logger)
	out := DebugResult{Query: text, Window: w}

	place, err := resolver.ResolvePlace(ctx, text)
	var res domain.ForecastResult
	if err != nil {
		res = domain.NoLocation(err)
	} else {
		c := place.Coordinate
		out.Coordinate = &c
		out.Area = place.Area
		out.Composite = place.Area.Composite()
		res = r.chain.Resolve(ctx, place, w)
	}

	out.Outcome = res.Outcome.String()
	out.Source = res.Record.Source
	out.Forecast = domain.Render(res)
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	out.Attempts = trace.Attempts()

	r.logger.Info("debug lookup",
		"query", text,
		"window", w.String(),
		"outcome", out.Outcome,
		"source", out.Source,
		"attempts", len(out.Attempts),
		"duration", time.Since(start),
	)
	return out, nil
}
