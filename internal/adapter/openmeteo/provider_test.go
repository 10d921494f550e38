package openmeteo

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/observability"
)

const forecastBody = `{
  "latitude": 25.0, "longitude": 121.5,
  "timezone": "Asia/Taipei", "utc_offset_seconds": 28800,
  "hourly": {
    "time": ["2026-10-15T08:00", "2026-10-15T09:00", "2026-10-15T12:00", "2026-10-15T15:00"],
    "temperature_2m": [22.1, 23.4, 26.8, null],
    "apparent_temperature": [23.0, 24.5, 28.2, null],
    "precipitation_probability": [5, 10, 35, 60],
    "uv_index": [1.2, 2.5, 7.9, 4.0],
    "weather_code": [1, 2, 61, 80]
  },
  "daily": {
    "time": ["2026-10-15"],
    "temperature_2m_max": [27.5],
    "temperature_2m_min": [21.0],
    "uv_index_max": [8.1],
    "precipitation_probability_max": [60],
    "weather_code": [63]
  }
}`

func mustLoad(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)
	return loc
}

var place = domain.Place{Coordinate: domain.Coordinate{Lat: 25.0, Lon: 121.5}}

func serve(t *testing.T, body string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		q := r.URL.Query()
		assert.Equal(t, forecastPath, r.URL.Path)
		assert.Equal(t, "Asia/Taipei", q.Get("timezone"))
		assert.Equal(t, "2026-10-15", q.Get("start_date"))
		assert.Equal(t, "2026-10-15", q.Get("end_date"))
		assert.Equal(t, hourlyFields, q.Get("hourly"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func testProvider(baseURL string) *Provider {
	return NewProvider(Config{BaseURL: baseURL, Timeout: 2 * time.Second},
		observability.NewMetricsForTesting(), observability.DiscardLogger())
}

func TestTryResolve_TimedWindowUsesHourly(t *testing.T) {
	srv := serve(t, forecastBody, nil)
	defer srv.Close()

	target := time.Date(2026, 10, 15, 0, 0, 0, 0, mustLoad(t))
	rec, err := testProvider(srv.URL).TryResolve(t.Context(), place, domain.HourWindow(target, 9, 1))
	require.NoError(t, err)

	assert.Equal(t, "多雲", rec.Description)
	assert.InDelta(t, 23.4, *rec.TemperatureC, 1e-9)
	assert.InDelta(t, 24.5, *rec.FeelsLikeC, 1e-9)
	assert.InDelta(t, 10, *rec.PrecipitationPct, 1e-9)
	assert.InDelta(t, 2.5, *rec.UVIndex, 1e-9)
	assert.Nil(t, rec.TempMinC, "timed windows render the point value")
}

func TestTryResolve_MiddayWindowUsesNoonSlice(t *testing.T) {
	srv := serve(t, forecastBody, nil)
	defer srv.Close()

	target := time.Date(2026, 10, 15, 0, 0, 0, 0, mustLoad(t))
	rec, err := testProvider(srv.URL).TryResolve(t.Context(), place, domain.MiddayWindow(target, 1))
	require.NoError(t, err)

	assert.Equal(t, "小雨", rec.Description)
	assert.InDelta(t, 26.8, *rec.TemperatureC, 1e-9)
	assert.InDelta(t, 21.0, *rec.TempMinC, 1e-9)
	assert.InDelta(t, 27.5, *rec.TempMaxC, 1e-9)
	assert.InDelta(t, 7.9, *rec.UVIndex, 1e-9, "noon slice, not the daily peak")
	assert.InDelta(t, 35, *rec.PrecipitationPct, 1e-9, "noon slice, not the daily peak")
	assert.Equal(t, "小雨，🌡️ 約 26.8°C（估計），體感 28.2°C，🌧️ 降雨 35%，☀️ 紫外線 7.9（🔴 很高）",
		domain.RenderRecord(rec))
}

func TestTryResolve_MiddayWindowFillsHolesFromDaily(t *testing.T) {
	body := strings.Replace(forecastBody, `"uv_index": [1.2, 2.5, 7.9, 4.0]`, `"uv_index": [1.2, 2.5, null, 4.0]`, 1)
	srv := serve(t, body, nil)
	defer srv.Close()

	target := time.Date(2026, 10, 15, 0, 0, 0, 0, mustLoad(t))
	rec, err := testProvider(srv.URL).TryResolve(t.Context(), place, domain.MiddayWindow(target, 1))
	require.NoError(t, err)

	assert.InDelta(t, 8.1, *rec.UVIndex, 1e-9)
	assert.InDelta(t, 35, *rec.PrecipitationPct, 1e-9)
}

func TestTryResolve_NullHolesStayAbsent(t *testing.T) {
	srv := serve(t, forecastBody, nil)
	defer srv.Close()

	target := time.Date(2026, 10, 15, 0, 0, 0, 0, mustLoad(t))
	rec, err := testProvider(srv.URL).TryResolve(t.Context(), place, domain.HourWindow(target, 16, 1))
	require.NoError(t, err)

	assert.Nil(t, rec.TemperatureC)
	assert.Nil(t, rec.FeelsLikeC)
	assert.Equal(t, "短暫陣雨", rec.Description)
}

func TestTryResolve_EmptySeries(t *testing.T) {
	srv := serve(t, `{"timezone":"Asia/Taipei","utc_offset_seconds":28800,"hourly":{"time":[]},"daily":{"time":[]}}`, nil)
	defer srv.Close()

	target := time.Date(2026, 10, 15, 0, 0, 0, 0, mustLoad(t))
	_, err := testProvider(srv.URL).TryResolve(t.Context(), place, domain.MiddayWindow(target, 1))
	assert.Equal(t, domain.KindEmpty, domain.KindOf(err))
}

func TestTryResolve_HorizonShortCircuits(t *testing.T) {
	var calls atomic.Int32
	srv := serve(t, forecastBody, &calls)
	defer srv.Close()

	target := time.Date(2026, 10, 31, 0, 0, 0, 0, mustLoad(t))
	_, err := testProvider(srv.URL).TryResolve(t.Context(), place, domain.MiddayWindow(target, 16))
	assert.Equal(t, domain.KindHorizon, domain.KindOf(err))
	assert.Zero(t, calls.Load())
}

func TestTryResolve_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"hourly": "nope"}`))
	}))
	defer srv.Close()

	target := time.Date(2026, 10, 15, 0, 0, 0, 0, mustLoad(t))
	_, err := testProvider(srv.URL).TryResolve(t.Context(), place, domain.MiddayWindow(target, 1))
	assert.Equal(t, domain.KindMalformed, domain.KindOf(err))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "晴", Describe(domain.Float(0)))
	assert.Equal(t, "雷雨", Describe(domain.Float(95)))
	assert.Empty(t, Describe(domain.Float(42)))
	assert.Empty(t, Describe(nil))
}

func TestTimezoneParam(t *testing.T) {
	assert.Equal(t, "Asia/Taipei", timezoneParam(mustLoad(t)))
	assert.Equal(t, "auto", timezoneParam(time.FixedZone("UTC+8", 8*3600)))
	assert.Equal(t, "UTC", timezoneParam(time.UTC))
}
