// Package openmeteo implements the keyless coordinate-keyed forecast tier
// backed by the Open-Meteo forecast API.
package openmeteo

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/adapter/upstream"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/observability"
)

const (
	defaultBaseURL     = "https://api.open-meteo.com"
	forecastPath       = "/v1/forecast"
	defaultHorizonDays = 15
	localTimeLayout    = "2006-01-02T15:04"

	hourlyFields = "temperature_2m,apparent_temperature,precipitation_probability,uv_index,weather_code"
	dailyFields  = "temperature_2m_max,temperature_2m_min,uv_index_max,precipitation_probability_max,weather_code"
)

// Config configures the Open-Meteo provider.
type Config struct {
	BaseURL         string
	HorizonDays     int
	Timeout         time.Duration
	BreakerFailures int
}

// Provider implements domain.WeatherProvider.
type Provider struct {
	api     *upstream.Client
	horizon int
	logger  *slog.Logger
}

// NewProvider creates an Open-Meteo provider. Descriptions come from a
// fixed weather-code table and need no script conversion.
func NewProvider(cfg Config, metrics *observability.Metrics, logger *slog.Logger) *Provider {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	horizon := cfg.HorizonDays
	if horizon == 0 {
		horizon = defaultHorizonDays
	}
	return &Provider{
		api: upstream.New(upstream.Config{
			Name:            string(domain.SourceOpenMeteo),
			BaseURL:         base,
			Timeout:         cfg.Timeout,
			BreakerFailures: cfg.BreakerFailures,
			Metrics:         metrics,
			Logger:          logger,
		}),
		horizon: horizon,
		logger:  logger,
	}
}

func (p *Provider) Name() domain.Source { return domain.SourceOpenMeteo }

// TryResolve fetches the target date only. Both window kinds use the closest
// hourly slice; midday windows also carry the daily temperature range.
func (p *Provider) TryResolve(ctx context.Context, place domain.Place, w domain.ForecastWindow) (domain.ForecastRecord, error) {
	if place.Coordinate.IsZero() {
		return domain.ForecastRecord{}, domain.Unavailable(domain.SourceOpenMeteo, domain.KindNotConfigured, errors.New("place has no coordinate"))
	}
	if err := domain.CheckHorizon(domain.SourceOpenMeteo, w, p.horizon); err != nil {
		return domain.ForecastRecord{}, err
	}

	day := w.TargetDate.Format(time.DateOnly)
	params := map[string]string{
		"latitude":   strconv.FormatFloat(place.Coordinate.Lat, 'f', 4, 64),
		"longitude":  strconv.FormatFloat(place.Coordinate.Lon, 'f', 4, 64),
		"timezone":   timezoneParam(w.Location()),
		"start_date": day,
		"end_date":   day,
		"hourly":     hourlyFields,
		"daily":      dailyFields,
	}
	var res forecastResponse
	if err := p.api.GetJSON(ctx, forecastPath, params, &res); err != nil {
		return domain.ForecastRecord{}, upstream.ProviderError(domain.SourceOpenMeteo, err)
	}

	zone := time.FixedZone(res.Timezone, res.UTCOffsetSeconds)
	hi, hourOK := domain.ClosestSlice(parseTimes(res.Hourly.Time, localTimeLayout, zone), w)
	di, dayOK := domain.DailyIndex(parseTimes(res.Daily.Time, time.DateOnly, zone), w)
	if !hourOK && !dayOK {
		return domain.ForecastRecord{}, domain.Unavailable(domain.SourceOpenMeteo, domain.KindEmpty, errors.New("no slice on target date"))
	}

	rec := domain.ForecastRecord{Source: domain.SourceOpenMeteo, ValidAt: w.At()}
	if hourOK {
		h := res.Hourly
		rec.TemperatureC = at(h.Temperature, hi)
		rec.FeelsLikeC = at(h.ApparentTemperature, hi)
		rec.PrecipitationPct = at(h.PrecipitationProbability, hi)
		rec.UVIndex = at(h.UVIndex, hi)
		rec.Description = Describe(at(h.WeatherCode, hi))
	}
	// Midday windows add the daily range. The daily series fills any value
	// the matched hourly slice lacks, and stands in when none matched.
	if dayOK && (!w.HasHour || !hourOK) {
		d := res.Daily
		rec.TempMinC = at(d.TemperatureMin, di)
		rec.TempMaxC = at(d.TemperatureMax, di)
		if rec.Description == "" {
			rec.Description = Describe(at(d.WeatherCode, di))
		}
		if rec.UVIndex == nil {
			rec.UVIndex = at(d.UVIndexMax, di)
		}
		if rec.PrecipitationPct == nil {
			rec.PrecipitationPct = at(d.PrecipitationProbabilityMax, di)
		}
	}

	if !rec.HasData() {
		return domain.ForecastRecord{}, domain.Unavailable(domain.SourceOpenMeteo, domain.KindEmpty, errors.New("slices carry no values"))
	}
	return rec, nil
}

// timezoneParam sends the IANA name when there is one and lets the API pick
// the zone from the coordinate otherwise.
func timezoneParam(loc *time.Location) string {
	name := loc.String()
	if name == "" || name == "Local" {
		return "auto"
	}
	if _, err := time.LoadLocation(name); err != nil {
		return "auto"
	}
	return name
}

func parseTimes(raw []string, layout string, zone *time.Location) []time.Time {
	out := make([]time.Time, len(raw))
	for i, s := range raw {
		if t, err := time.ParseInLocation(layout, s, zone); err == nil {
			out[i] = t
		}
	}
	return out
}

func at(vals []*float64, i int) *float64 {
	if i < 0 || i >= len(vals) || vals[i] == nil {
		return nil
	}
	v := *vals[i]
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// Open-Meteo response types. Series are parallel arrays with null holes.

type forecastResponse struct {
	Timezone         string `json:"timezone"`
	UTCOffsetSeconds int    `json:"utc_offset_seconds"`
	Hourly           struct {
		Time                     []string   `json:"time"`
		Temperature              []*float64 `json:"temperature_2m"`
		ApparentTemperature      []*float64 `json:"apparent_temperature"`
		PrecipitationProbability []*float64 `json:"precipitation_probability"`
		UVIndex                  []*float64 `json:"uv_index"`
		WeatherCode              []*float64 `json:"weather_code"`
	} `json:"hourly"`
	Daily struct {
		Time                        []string   `json:"time"`
		TemperatureMax              []*float64 `json:"temperature_2m_max"`
		TemperatureMin              []*float64 `json:"temperature_2m_min"`
		UVIndexMax                  []*float64 `json:"uv_index_max"`
		PrecipitationProbabilityMax []*float64 `json:"precipitation_probability_max"`
		WeatherCode                 []*float64 `json:"weather_code"`
	} `json:"daily"`
}
