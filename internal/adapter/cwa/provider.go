// Package cwa implements the area-keyed forecast tier backed by the Central
// Weather Administration open data township forecasts.
//
// The datastore has served two JSON schemas: the current one with
// capitalised keys (Locations, WeatherElement, ElementValue[].Temperature)
// and the legacy lower-case one (locations, weatherElement,
// elementValue[].value). encoding/json matches keys case-insensitively, so
// one set of types decodes both; the per-element value keys differ and are
// looked up by alias.
package cwa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/adapter/upstream"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/observability"
)

const (
	defaultBaseURL     = "https://opendata.cwa.gov.tw"
	defaultDataset     = "F-D0047-089"
	defaultHorizonDays = 3
	datastorePath      = "/api/v1/rest/datastore/"
)

// Config configures the CWA provider.
type Config struct {
	APIKey          string
	BaseURL         string
	Dataset         string
	HorizonDays     int
	Timeout         time.Duration
	BreakerFailures int
}

// Provider implements domain.WeatherProvider.
type Provider struct {
	api     *upstream.Client
	apiKey  string
	dataset string
	horizon int
	conv    domain.ScriptConverter
	logger  *slog.Logger
}

// NewProvider creates a CWA provider.
func NewProvider(cfg Config, conv domain.ScriptConverter, metrics *observability.Metrics, logger *slog.Logger) *Provider {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	dataset := cfg.Dataset
	if dataset == "" {
		dataset = defaultDataset
	}
	horizon := cfg.HorizonDays
	if horizon == 0 {
		horizon = defaultHorizonDays
	}
	if conv == nil {
		conv = domain.IdentityConverter{}
	}
	return &Provider{
		api: upstream.New(upstream.Config{
			Name:            string(domain.SourceCWA),
			BaseURL:         base,
			Timeout:         cfg.Timeout,
			BreakerFailures: cfg.BreakerFailures,
			Metrics:         metrics,
			Logger:          logger,
		}),
		apiKey:  cfg.APIKey,
		dataset: dataset,
		horizon: horizon,
		conv:    conv,
		logger:  logger,
	}
}

func (p *Provider) Name() domain.Source { return domain.SourceCWA }

// TryResolve queries the township (level 3) name first and the county
// (level 2) name second, returning the first that has data for the window.
func (p *Provider) TryResolve(ctx context.Context, place domain.Place, w domain.ForecastWindow) (domain.ForecastRecord, error) {
	if p.apiKey == "" {
		return domain.ForecastRecord{}, domain.Unavailable(domain.SourceCWA, domain.KindNotConfigured, errors.New("no API key"))
	}
	if err := domain.CheckHorizon(domain.SourceCWA, w, p.horizon); err != nil {
		return domain.ForecastRecord{}, err
	}

	names := queryNames(place.Area)
	if len(names) == 0 {
		return domain.ForecastRecord{}, domain.Unavailable(domain.SourceCWA, domain.KindNotFound, errors.New("place has no administrative area"))
	}

	var lastErr error
	for _, name := range names {
		rec, err := p.resolveName(ctx, name, place.Coordinate, w)
		if err == nil {
			return rec, nil
		}
		p.logger.Debug("cwa lookup failed", "location_name", name, "kind", domain.KindOf(err), "error", err)
		lastErr = err
		// Transport-level failures will not improve with a different name.
		switch domain.KindOf(err) {
		case domain.KindTimeout, domain.KindTransport, domain.KindCircuitOpen, domain.KindStatus:
			return domain.ForecastRecord{}, err
		}
	}
	return domain.ForecastRecord{}, lastErr
}

func (p *Provider) resolveName(ctx context.Context, name string, near domain.Coordinate, w domain.ForecastWindow) (domain.ForecastRecord, error) {
	params := map[string]string{
		"Authorization": p.apiKey,
		"LocationName":  name,
		"format":        "JSON",
	}
	var res datastoreResponse
	if err := p.api.GetJSON(ctx, datastorePath+p.dataset, params, &res); err != nil {
		return domain.ForecastRecord{}, upstream.ProviderError(domain.SourceCWA, err)
	}
	if strings.EqualFold(res.Success, "false") {
		return domain.ForecastRecord{}, domain.Unavailable(domain.SourceCWA, domain.KindStatus, errors.New("datastore reported success=false"))
	}

	loc, ok := res.pickLocation(name, near)
	if !ok {
		return domain.ForecastRecord{}, domain.Unavailable(domain.SourceCWA, domain.KindEmpty, fmt.Errorf("no location named %q", name))
	}

	rec := domain.ForecastRecord{Source: domain.SourceCWA, ValidAt: w.At()}
	for _, el := range loc.WeatherElement {
		kind := classifyElement(el.ElementName)
		if kind == elementUnknown {
			continue
		}
		slot, ok := pickSlot(el.Time, w)
		if !ok {
			continue
		}
		raw := slot.value(kind)
		switch kind {
		case elementTemperature:
			rec.TemperatureC = parseNumber(raw)
		case elementMaxTemperature:
			rec.TempMaxC = parseNumber(raw)
		case elementMinTemperature:
			rec.TempMinC = parseNumber(raw)
		case elementApparent:
			rec.FeelsLikeC = parseNumber(raw)
		case elementPrecipitation:
			rec.PrecipitationPct = parseNumber(raw)
		case elementWeather:
			rec.Description = p.conv.Convert(strings.TrimSpace(raw))
		case elementUV:
			rec.UVIndex = domain.ParseUVIndex(raw)
		}
	}

	if !rec.HasData() {
		return domain.ForecastRecord{}, domain.Unavailable(domain.SourceCWA, domain.KindEmpty, fmt.Errorf("%s has no slice on %s", name, w))
	}
	return rec, nil
}

// queryNames lists the names to query, most specific first, normalised to
// the agency's 臺 spelling and without duplicates.
func queryNames(area domain.AdministrativeArea) []string {
	n := area.Normalized()
	var names []string
	for _, s := range []string{n.Level3, n.Level2} {
		if s == "" {
			continue
		}
		if len(names) > 0 && names[len(names)-1] == s {
			continue
		}
		names = append(names, s)
	}
	return names
}

// parseNumber reads CWA's string numbers. Sentinels such as "-99" or " "
// mean no data.
func parseNumber(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= -99 {
		return nil
	}
	return &v
}

type elementKind int

const (
	elementUnknown elementKind = iota
	elementTemperature
	elementMaxTemperature
	elementMinTemperature
	elementApparent
	elementPrecipitation
	elementWeather
	elementUV
)

func classifyElement(name string) elementKind {
	n := strings.TrimSpace(name)
	switch {
	case n == "溫度" || n == "平均溫度" || n == "T":
		return elementTemperature
	case n == "最高溫度" || n == "MaxT":
		return elementMaxTemperature
	case n == "最低溫度" || n == "MinT":
		return elementMinTemperature
	case n == "體感溫度" || n == "平均體感溫度" || n == "AT":
		return elementApparent
	case strings.Contains(n, "降雨機率") || strings.HasPrefix(n, "PoP"):
		return elementPrecipitation
	case n == "天氣現象" || n == "Wx":
		return elementWeather
	case n == "紫外線指數" || n == "UVI":
		return elementUV
	default:
		return elementUnknown
	}
}

// valueKeys are the ElementValue keys holding each element's value in the
// current schema; the legacy schema always used "value".
var valueKeys = map[elementKind][]string{
	elementTemperature:    {"Temperature"},
	elementMaxTemperature: {"MaxTemperature"},
	elementMinTemperature: {"MinTemperature"},
	elementApparent:       {"ApparentTemperature"},
	elementPrecipitation:  {"ProbabilityOfPrecipitation"},
	elementWeather:        {"Weather"},
	elementUV:             {"UVIndex"},
}

// pickSlot chooses the time entry for the window: the interval containing
// the target instant if there is one, otherwise the entry on the target date
// whose start is closest.
func pickSlot(slots []timeSlot, w domain.ForecastWindow) (timeSlot, bool) {
	at := w.At()
	starts := make([]time.Time, len(slots))
	for i, s := range slots {
		start, end := s.bounds()
		if !start.IsZero() && !end.IsZero() && !at.Before(start) && at.Before(end) {
			return s, true
		}
		starts[i] = start
	}
	i, ok := domain.ClosestSlice(starts, w)
	if !ok {
		return timeSlot{}, false
	}
	return slots[i], true
}

// CWA datastore response types.

type datastoreResponse struct {
	Success string `json:"success"`
	Records struct {
		Locations []locationGroup `json:"Locations"`
	} `json:"records"`
}

type locationGroup struct {
	LocationsName string     `json:"LocationsName"`
	Location      []location `json:"Location"`
}

type location struct {
	LocationName   string    `json:"LocationName"`
	Latitude       string    `json:"Latitude"`
	Longitude      string    `json:"Longitude"`
	Lat            string    `json:"lat"`
	Lon            string    `json:"lon"`
	WeatherElement []element `json:"WeatherElement"`
}

type element struct {
	ElementName string     `json:"ElementName"`
	Time        []timeSlot `json:"Time"`
}

type timeSlot struct {
	DataTime     string           `json:"DataTime"`
	StartTime    string           `json:"StartTime"`
	EndTime      string           `json:"EndTime"`
	ElementValue []map[string]any `json:"ElementValue"`
}

// pickLocation returns the entry named name. Township names repeat across
// counties (東區, 北區, ...); when several match, the one nearest the place
// wins.
func (r datastoreResponse) pickLocation(name string, near domain.Coordinate) (location, bool) {
	var matches []location
	for _, g := range r.Records.Locations {
		for _, l := range g.Location {
			if strings.TrimSpace(l.LocationName) == name {
				matches = append(matches, l)
			}
		}
	}
	if len(matches) == 0 {
		return location{}, false
	}
	best, bestDist := 0, math.Inf(1)
	for i, m := range matches {
		c, ok := m.coordinate()
		if !ok || near.IsZero() {
			continue
		}
		d := math.Hypot(c.Lat-near.Lat, c.Lon-near.Lon)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return matches[best], true
}

func (l location) coordinate() (domain.Coordinate, bool) {
	latS, lonS := l.Latitude, l.Longitude
	if latS == "" {
		latS, lonS = l.Lat, l.Lon
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(latS), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(lonS), 64)
	if err1 != nil || err2 != nil {
		return domain.Coordinate{}, false
	}
	return domain.Coordinate{Lat: lat, Lon: lon}, true
}

func (s timeSlot) bounds() (time.Time, time.Time) {
	if s.DataTime != "" {
		return parseTime(s.DataTime), time.Time{}
	}
	return parseTime(s.StartTime), parseTime(s.EndTime)
}

func (s timeSlot) value(kind elementKind) string {
	for _, ev := range s.ElementValue {
		for _, k := range valueKeys[kind] {
			if str := stringify(ev[k]); str != "" {
				return str
			}
		}
		if str := stringify(ev["value"]); str != "" {
			return str
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// parseTime accepts RFC 3339 and the legacy "2006-01-02 15:04:05" form,
// which is Taiwan local time.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.ParseInLocation(time.DateTime, s, taiwanTime); err == nil {
		return t
	}
	return time.Time{}
}

var taiwanTime = time.FixedZone("CST", 8*60*60)
