package domain

import (
	"context"
	"time"
)

// GeocodingResult contains what a forward or reverse lookup returned.
type GeocodingResult struct {
	Coordinate       Coordinate
	Area             AdministrativeArea
	FormattedAddress string
	PlaceName        string
}

// Geocoder resolves free text to coordinates and coordinates to areas.
// Implementations return a *LookupError on any failure, including an empty
// result set.
type Geocoder interface {
	// ForwardGeocode converts free text to coordinates.
	ForwardGeocode(ctx context.Context, text string) (GeocodingResult, error)

	// ReverseGeocode converts coordinates to administrative areas.
	ReverseGeocode(ctx context.Context, c Coordinate) (GeocodingResult, error)
}

// WeatherProvider is one tier of the forecast chain. Implementations return
// a *ProviderError instead of a partial record when the window isn't covered.
type WeatherProvider interface {
	Name() Source
	TryResolve(ctx context.Context, place Place, window ForecastWindow) (ForecastRecord, error)
}

// CalendarSource lists single-occurrence events whose start falls in
// [from, to), ordered by start time.
type CalendarSource interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]EventEntry, error)
}

// Notifier pushes a text message to a recipient.
type Notifier interface {
	Name() string
	Push(ctx context.Context, recipient, text string) error
}

// ScriptConverter rewrites provider text into the region's preferred script.
type ScriptConverter interface {
	Convert(text string) string
}

// IdentityConverter leaves text unchanged.
type IdentityConverter struct{}

func (IdentityConverter) Convert(text string) string { return text }
