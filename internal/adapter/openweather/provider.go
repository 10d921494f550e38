// Package openweather implements the coordinate-keyed forecast tier backed
// by the OpenWeather One Call 3.0 API.
package openweather

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/adapter/upstream"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/observability"
)

const (
	defaultBaseURL     = "https://api.openweathermap.org"
	oneCallPath        = "/data/3.0/onecall"
	defaultHorizonDays = 7
)

// Config configures the OpenWeather provider.
type Config struct {
	APIKey          string
	BaseURL         string
	Language        string // BCP 47, e.g. "zh-TW"
	HorizonDays     int
	Timeout         time.Duration
	BreakerFailures int
}

// Provider implements domain.WeatherProvider.
type Provider struct {
	api     *upstream.Client
	apiKey  string
	lang    string
	horizon int
	conv    domain.ScriptConverter
	logger  *slog.Logger
}

// NewProvider creates an OpenWeather provider.
func NewProvider(cfg Config, conv domain.ScriptConverter, metrics *observability.Metrics, logger *slog.Logger) *Provider {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
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
			Name:            string(domain.SourceOpenWeather),
			BaseURL:         base,
			Timeout:         cfg.Timeout,
			BreakerFailures: cfg.BreakerFailures,
			Metrics:         metrics,
			Logger:          logger,
		}),
		apiKey:  cfg.APIKey,
		lang:    apiLanguage(cfg.Language),
		horizon: horizon,
		conv:    conv,
		logger:  logger,
	}
}

func (p *Provider) Name() domain.Source { return domain.SourceOpenWeather }

// TryResolve looks up the forecast at the place's coordinate. The hourly
// series is used when it reaches the target date; otherwise the daily entry
// for that date.
func (p *Provider) TryResolve(ctx context.Context, place domain.Place, w domain.ForecastWindow) (domain.ForecastRecord, error) {
	if p.apiKey == "" {
		return domain.ForecastRecord{}, domain.Unavailable(domain.SourceOpenWeather, domain.KindNotConfigured, errors.New("no API key"))
	}
	if place.Coordinate.IsZero() {
		return domain.ForecastRecord{}, domain.Unavailable(domain.SourceOpenWeather, domain.KindNotConfigured, errors.New("place has no coordinate"))
	}
	if err := domain.CheckHorizon(domain.SourceOpenWeather, w, p.horizon); err != nil {
		return domain.ForecastRecord{}, err
	}

	params := map[string]string{
		"lat":     strconv.FormatFloat(place.Coordinate.Lat, 'f', 6, 64),
		"lon":     strconv.FormatFloat(place.Coordinate.Lon, 'f', 6, 64),
		"appid":   p.apiKey,
		"units":   "metric",
		"lang":    p.lang,
		"exclude": "current,minutely,alerts",
	}
	var res oneCallResponse
	if err := p.api.GetJSON(ctx, oneCallPath, params, &res); err != nil {
		return domain.ForecastRecord{}, upstream.ProviderError(domain.SourceOpenWeather, err)
	}

	if rec, ok := p.fromHourly(res.Hourly, w); ok {
		return rec, nil
	}
	if rec, ok := p.fromDaily(res.Daily, w); ok {
		return rec, nil
	}
	p.logger.Debug("openweather response does not cover target date",
		"coordinate", place.Coordinate.String(),
		"window", w.String(),
		"hourly", len(res.Hourly),
		"daily", len(res.Daily),
	)
	return domain.ForecastRecord{}, domain.Unavailable(domain.SourceOpenWeather, domain.KindEmpty, errors.New("no slice on target date"))
}

func (p *Provider) fromHourly(hours []hourly, w domain.ForecastWindow) (domain.ForecastRecord, bool) {
	times := make([]time.Time, len(hours))
	for i, h := range hours {
		times[i] = unix(h.Dt)
	}
	i, ok := domain.ClosestSlice(times, w)
	if !ok {
		return domain.ForecastRecord{}, false
	}
	h := hours[i]
	return domain.ForecastRecord{
		Description:      p.conv.Convert(h.description()),
		TemperatureC:     h.Temp,
		FeelsLikeC:       h.FeelsLike,
		PrecipitationPct: percent(h.Pop),
		UVIndex:          h.UVI,
		Source:           domain.SourceOpenWeather,
		ValidAt:          times[i].In(w.Location()),
	}, true
}

func (p *Provider) fromDaily(days []daily, w domain.ForecastWindow) (domain.ForecastRecord, bool) {
	times := make([]time.Time, len(days))
	for i, d := range days {
		times[i] = unix(d.Dt)
	}
	i, ok := domain.DailyIndex(times, w)
	if !ok {
		return domain.ForecastRecord{}, false
	}
	d := days[i]
	return domain.ForecastRecord{
		Description:      p.conv.Convert(d.description()),
		TemperatureC:     d.Temp.Day,
		TempMinC:         d.Temp.Min,
		TempMaxC:         d.Temp.Max,
		FeelsLikeC:       d.FeelsLike.Day,
		PrecipitationPct: percent(d.Pop),
		UVIndex:          d.UVI,
		Source:           domain.SourceOpenWeather,
		ValidAt:          times[i].In(w.Location()),
	}, true
}

func unix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// percent converts OpenWeather's 0..1 probability to a percentage.
func percent(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return domain.Float(*p * 100)
}

// apiLanguage maps "zh-TW" to OpenWeather's "zh_tw".
func apiLanguage(lang string) string {
	if lang == "" {
		return "zh_tw"
	}
	return strings.ReplaceAll(strings.ToLower(lang), "-", "_")
}

// OpenWeather One Call response types. Pointer fields distinguish an absent
// value from a real zero.

type oneCallResponse struct {
	TimezoneOffset int      `json:"timezone_offset"`
	Hourly         []hourly `json:"hourly"`
	Daily          []daily  `json:"daily"`
}

type condition struct {
	Description string `json:"description"`
}

type hourly struct {
	Dt        int64       `json:"dt"`
	Temp      *float64    `json:"temp"`
	FeelsLike *float64    `json:"feels_like"`
	Pop       *float64    `json:"pop"`
	UVI       *float64    `json:"uvi"`
	Weather   []condition `json:"weather"`
}

func (h hourly) description() string { return firstDescription(h.Weather) }

type daily struct {
	Dt   int64 `json:"dt"`
	Temp struct {
		Day *float64 `json:"day"`
		Min *float64 `json:"min"`
		Max *float64 `json:"max"`
	} `json:"temp"`
	FeelsLike struct {
		Day *float64 `json:"day"`
	} `json:"feels_like"`
	Pop     *float64    `json:"pop"`
	UVI     *float64    `json:"uvi"`
	Weather []condition `json:"weather"`
}

func (d daily) description() string { return firstDescription(d.Weather) }

func firstDescription(cs []condition) string {
	for _, c := range cs {
		if s := strings.TrimSpace(c.Description); s != "" {
			return s
		}
	}
	return ""
}
