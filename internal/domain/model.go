package domain

import (
	"fmt"
	"strings"
	"time"
)

// Coordinate represents a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Offset returns a new coordinate shifted by the given degrees.
func (c Coordinate) Offset(dLat, dLon float64) Coordinate {
	return Coordinate{Lat: c.Lat + dLat, Lon: c.Lon + dLon}
}

// IsZero reports whether the coordinate is the zero value.
func (c Coordinate) IsZero() bool {
	return c.Lat == 0 && c.Lon == 0
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// AdministrativeArea holds the named regions a coordinate falls in. An empty
// string means the provider did not report that level.
type AdministrativeArea struct {
	Level1 string `json:"level1,omitempty"` // province or special municipality
	Level2 string `json:"level2,omitempty"` // county or city
	Level3 string `json:"level3,omitempty"` // township or district
}

// IsZero reports whether no level is known.
func (a AdministrativeArea) IsZero() bool {
	return a.Level1 == "" && a.Level2 == "" && a.Level3 == ""
}

// MostSpecific returns the finest-grained name available.
func (a AdministrativeArea) MostSpecific() string {
	switch {
	case a.Level3 != "":
		return a.Level3
	case a.Level2 != "":
		return a.Level2
	default:
		return a.Level1
	}
}

// Composite joins level1 and level2 when both are present and differ,
// e.g. "臺灣省宜蘭縣". Otherwise it returns the most specific name.
func (a AdministrativeArea) Composite() string {
	if a.Level1 != "" && a.Level2 != "" && a.Level1 != a.Level2 {
		return a.Level1 + a.Level2
	}
	return a.MostSpecific()
}

// Normalized rewrites the common variant 台 to 臺, the form used by the
// Central Weather Administration's location names.
func (a AdministrativeArea) Normalized() AdministrativeArea {
	return AdministrativeArea{
		Level1: normalizeAreaName(a.Level1),
		Level2: normalizeAreaName(a.Level2),
		Level3: normalizeAreaName(a.Level3),
	}
}

func normalizeAreaName(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "台", "臺")
}

// Place is what a weather provider is asked about: a resolved coordinate and,
// when reverse geocoding succeeded, the administrative area around it.
type Place struct {
	Query      string             `json:"query"`
	Coordinate Coordinate         `json:"coordinate"`
	Area       AdministrativeArea `json:"area"`
}

// Source identifies the provider tier that produced a forecast.
type Source string

const (
	SourceOpenWeather Source = "openweather"
	SourceCWA         Source = "cwa"
	SourceOpenMeteo   Source = "openmeteo"
	SourceNearby      Source = "nearby"
	SourceSnapshot    Source = "snapshot"
)

// ForecastRecord is the normalized forecast every provider reduces to.
// Nil pointers mean the provider did not report the value.
type ForecastRecord struct {
	Description      string    `json:"description,omitempty"`
	TemperatureC     *float64  `json:"temperature_c,omitempty"`
	TempMinC         *float64  `json:"temp_min_c,omitempty"`
	TempMaxC         *float64  `json:"temp_max_c,omitempty"`
	FeelsLikeC       *float64  `json:"feels_like_c,omitempty"`
	PrecipitationPct *float64  `json:"precipitation_pct,omitempty"`
	UVIndex          *float64  `json:"uv_index,omitempty"`
	Source           Source    `json:"source"`
	ValidAt          time.Time `json:"valid_at,omitempty"`
	Nearby           bool      `json:"nearby,omitempty"`
	// StaleFrom is the day the values were forecast for, set only when it
	// is not the day asked about.
	StaleFrom time.Time `json:"stale_from,omitempty"`
}

// HasData reports whether the record carries anything worth rendering.
func (r ForecastRecord) HasData() bool {
	return r.Description != "" || r.TemperatureC != nil || r.TempMinC != nil ||
		r.TempMaxC != nil || r.PrecipitationPct != nil || r.UVIndex != nil
}

// Float returns a pointer to v, for filling optional record fields.
func Float(v float64) *float64 {
	return &v
}

// EventStart mirrors a calendar start: DateTime for timed events, Date for
// all-day events. Both are the raw strings the calendar returned.
type EventStart struct {
	DateTime string `json:"date_time,omitempty"`
	Date     string `json:"date,omitempty"`
}

// EventEntry is a read-only view of a calendar item. End uses the same shape
// as Start; the calendar makes it exclusive.
type EventEntry struct {
	Summary  string     `json:"summary"`
	Start    EventStart `json:"start"`
	End      EventStart `json:"end,omitempty"`
	Location string     `json:"location,omitempty"`
}

// Placement says how an event relates to a report's target date.
type Placement int

const (
	// PlacedOn events start on the target date, or have an unreadable start.
	PlacedOn Placement = iota
	// PlacedOngoing events started earlier and are still running that day.
	PlacedOngoing
	// PlacedOff events do not touch the target date.
	PlacedOff
)

// Place parses the event start and places the event relative to target.
// An earlier start with no readable end counts as ongoing: the calendar only
// returns items overlapping the queried day.
func (e EventEntry) Place(target time.Time, loc *time.Location) (time.Time, StartKind, Placement, error) {
	start, kind, err := e.Start.ParseStart(loc)
	if kind == StartInvalid {
		return start, kind, PlacedOn, err
	}
	day := CivilDate(target.In(loc))
	switch {
	case SameDate(start, day, loc):
		return start, kind, PlacedOn, nil
	case start.After(day):
		return start, kind, PlacedOff, nil
	}

	end, endKind, endErr := e.End.ParseStart(loc)
	if endKind == StartInvalid || endErr != nil || end.After(day) {
		return start, kind, PlacedOngoing, nil
	}
	return start, kind, PlacedOff, nil
}

// StartKind classifies how an event start parsed.
type StartKind int

const (
	StartTimed StartKind = iota
	StartAllDay
	StartInvalid
)

// ParseStart interprets an event start in loc. Timed starts are RFC 3339
// (the calendar's format); a value without a "T" is treated as a date.
func (s EventStart) ParseStart(loc *time.Location) (time.Time, StartKind, error) {
	raw := strings.TrimSpace(s.DateTime)
	if raw == "" {
		raw = strings.TrimSpace(s.Date)
	}
	if raw == "" {
		return time.Time{}, StartInvalid, fmt.Errorf("event start is empty")
	}

	if !strings.Contains(raw, "T") {
		d, err := time.ParseInLocation(time.DateOnly, raw, loc)
		if err != nil {
			return time.Time{}, StartInvalid, fmt.Errorf("parse event date %q: %w", raw, err)
		}
		return d, StartAllDay, nil
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Calendars occasionally omit the offset; read it as local time.
		t, err = time.ParseInLocation("2006-01-02T15:04:05", raw, loc)
		if err != nil {
			return time.Time{}, StartInvalid, fmt.Errorf("parse event start %q: %w", raw, err)
		}
	}
	return t.In(loc), StartTimed, nil
}
