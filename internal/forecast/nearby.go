package forecast

import (
	"context"
	"errors"
	"time"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/location"
)

// NearbyProvider retries a coordinate-keyed provider at fixed offsets around
// the place. Records it returns are marked Nearby.
type NearbyProvider struct {
	inner domain.WeatherProvider
}

// NewNearbyProvider wraps inner, which should be keyed by coordinate.
func NewNearbyProvider(inner domain.WeatherProvider) *NearbyProvider {
	return &NearbyProvider{inner: inner}
}

func (n *NearbyProvider) Name() domain.Source { return domain.SourceNearby }

// TryResolve probes each offset in order and returns the first hit.
func (n *NearbyProvider) TryResolve(ctx context.Context, place domain.Place, w domain.ForecastWindow) (domain.ForecastRecord, error) {
	if place.Coordinate.IsZero() {
		return domain.ForecastRecord{}, domain.Unavailable(domain.SourceNearby, domain.KindNotConfigured, errors.New("place has no coordinate"))
	}

	trace := domain.TraceFrom(ctx)
	var last error
	for _, probe := range location.NearbyProbes(place.Coordinate) {
		start := time.Now()
		rec, err := n.inner.TryResolve(ctx, domain.Place{Query: place.Query, Coordinate: probe, Area: place.Area}, w)
		if err == nil && !rec.HasData() {
			err = domain.Unavailable(n.inner.Name(), domain.KindEmpty, errors.New("record has no values"))
		}
		trace.Add(domain.AttemptFromError(domain.Attempt{
			Stage:    "nearby",
			Provider: string(n.inner.Name()),
			Query:    probe.String(),
			Duration: time.Since(start),
		}, err))

		if err == nil {
			rec.Nearby = true
			rec.Source = domain.SourceNearby
			return rec, nil
		}
		last = err
		if !worthProbing(domain.KindOf(err)) {
			break
		}
	}
	return domain.ForecastRecord{}, &domain.ProviderError{
		Provider: domain.SourceNearby,
		Kind:     domain.KindOf(last),
		Err:      last,
	}
}

// worthProbing reports whether moving the coordinate could change the
// outcome of a failure.
func worthProbing(kind domain.FailureKind) bool {
	switch kind {
	case domain.KindHorizon, domain.KindNotConfigured, domain.KindCircuitOpen, domain.KindTimeout:
		return false
	default:
		return true
	}
}
