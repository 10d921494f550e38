// Package location turns free-text event locations into coordinates and
// administrative areas.
package location

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
)

const geocoderName = "googlemaps"

// Resolver wraps a Geocoder with the fallback rules for messy event text.
type Resolver struct {
	geocoder domain.Geocoder
	logger   *slog.Logger
}

// NewResolver creates a Resolver over g.
func NewResolver(g domain.Geocoder, logger *slog.Logger) *Resolver {
	return &Resolver{geocoder: g, logger: logger}
}

// Resolve converts free text to a coordinate. When the raw text finds
// nothing, parenthetical annotations are stripped and the lookup is retried
// once. Every failure satisfies errors.Is(err, domain.ErrNotFound).
func (r *Resolver) Resolve(ctx context.Context, text string) (domain.Coordinate, error) {
	res, err := r.forward(ctx, text)
	return res.Coordinate, err
}

// ResolvePlace resolves text to a coordinate and then, best effort, to the
// administrative area containing it. A failed reverse lookup still yields a
// usable place; only the area is left empty.
func (r *Resolver) ResolvePlace(ctx context.Context, text string) (domain.Place, error) {
	res, err := r.forward(ctx, text)
	if err != nil {
		return domain.Place{Query: text}, err
	}

	place := domain.Place{Query: text, Coordinate: res.Coordinate}
	area, err := r.ReverseResolve(ctx, res.Coordinate)
	if err != nil {
		r.logger.Info("reverse geocode failed, continuing with coordinate only",
			"query", text,
			"coordinate", res.Coordinate.String(),
			"kind", domain.KindOf(err),
		)
		return place, nil
	}
	place.Area = area
	return place, nil
}

// ReverseResolve converts a coordinate to its administrative area.
func (r *Resolver) ReverseResolve(ctx context.Context, c domain.Coordinate) (domain.AdministrativeArea, error) {
	start := time.Now()
	res, err := r.geocoder.ReverseGeocode(ctx, c)
	err = asLookupError("reverse", c.String(), err)
	r.trace(ctx, "reverse", c.String(), start, err)
	if err != nil {
		return domain.AdministrativeArea{}, err
	}
	return res.Area, nil
}

func (r *Resolver) forward(ctx context.Context, text string) (domain.GeocodingResult, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return domain.GeocodingResult{}, &domain.LookupError{Method: "forward", Query: text, Kind: domain.KindNotFound}
	}

	res, err := r.forwardOnce(ctx, query)
	if err == nil {
		return res, nil
	}

	cleaned := StripParentheticals(query)
	if cleaned == "" || cleaned == query {
		return domain.GeocodingResult{}, err
	}
	r.logger.Debug("retrying forward geocode without annotations", "query", query, "cleaned", cleaned)
	return r.forwardOnce(ctx, cleaned)
}

func (r *Resolver) forwardOnce(ctx context.Context, query string) (domain.GeocodingResult, error) {
	start := time.Now()
	res, err := r.geocoder.ForwardGeocode(ctx, query)
	if err == nil && res.Coordinate.IsZero() {
		err = &domain.LookupError{Method: "forward", Query: query, Kind: domain.KindEmpty}
	}
	err = asLookupError("forward", query, err)
	r.trace(ctx, "forward", query, start, err)
	return res, err
}

func (r *Resolver) trace(ctx context.Context, stage, query string, start time.Time, err error) {
	domain.TraceFrom(ctx).Add(domain.AttemptFromError(domain.Attempt{
		Stage:    stage,
		Provider: geocoderName,
		Query:    query,
		Duration: time.Since(start),
	}, err))
}

// asLookupError makes sure geocoder errors that aren't already lookup
// errors still read as NotFound for callers.
func asLookupError(method, query string, err error) error {
	if err == nil {
		return nil
	}
	var le *domain.LookupError
	if errors.As(err, &le) {
		return err
	}
	return &domain.LookupError{Method: method, Query: query, Kind: domain.ClassifyTransport(err), Err: err}
}

// StripParentheticals removes parenthesised annotations, ASCII and
// full-width, nested or left open at the end of the text. Stray closing
// parentheses are dropped and runs of whitespace collapse to one space.
func StripParentheticals(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch r {
		case '(', '（':
			depth++
		case ')', '）':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
