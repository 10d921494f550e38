package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRender_FullRecord(t *testing.T) {
	rec := ForecastRecord{
		Description:      "多雲時晴",
		TemperatureC:     Float(27),
		FeelsLikeC:       Float(30.04),
		PrecipitationPct: Float(20),
		UVIndex:          Float(7),
		Source:           SourceCWA,
	}

	got := Render(Found(rec))
	assert.Equal(t, "多雲時晴，🌡️ 27°C，體感 30°C，🌧️ 降雨 20%，☀️ 紫外線 7（🟠 高）", got)
}

func TestRender_Idempotent(t *testing.T) {
	res := Found(ForecastRecord{Description: "晴", TemperatureC: Float(25.55), UVIndex: Float(3), Source: SourceOpenMeteo})
	assert.Equal(t, Render(res), Render(res))
}

func TestRender_MissingFieldsUsePlaceholder(t *testing.T) {
	got := Render(Found(ForecastRecord{Description: "陰", Source: SourceSnapshot}))
	assert.Equal(t, "陰，🌡️ --，🌧️ 降雨 --，☀️ 紫外線 --（❓ 未知）", got)
}

func TestRender_TemperatureRange(t *testing.T) {
	tests := []struct {
		name string
		rec  ForecastRecord
		want string
	}{
		{
			name: "narrow range",
			rec:  ForecastRecord{TempMinC: Float(24), TempMaxC: Float(26.5)},
			want: "24～26.5°C",
		},
		{
			name: "wide range uses point value as estimate",
			rec:  ForecastRecord{TempMinC: Float(18), TempMaxC: Float(28), TemperatureC: Float(25)},
			want: "約 25°C（估計）",
		},
		{
			name: "wide range without point value uses midpoint",
			rec:  ForecastRecord{TempMinC: Float(18), TempMaxC: Float(28)},
			want: "約 23°C（估計）",
		},
		{
			name: "equal bounds",
			rec:  ForecastRecord{TempMinC: Float(22), TempMaxC: Float(22)},
			want: "22°C",
		},
		{
			name: "point value only",
			rec:  ForecastRecord{TemperatureC: Float(19.96)},
			want: "20°C",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderTemperature(tt.rec))
		})
	}
}

func TestRender_Nearby(t *testing.T) {
	got := Render(Found(ForecastRecord{Description: "晴", TemperatureC: Float(30), Nearby: true, Source: SourceNearby}))
	assert.Contains(t, got, "（附近）晴")
}

func TestRender_Stale(t *testing.T) {
	rec := ForecastRecord{Description: "晴", TemperatureC: Float(30), Source: SourceSnapshot,
		StaleFrom: time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)}
	assert.Contains(t, Render(Found(rec)), "（10/12 舊資料）晴")

	rec.StaleFrom = time.Time{}
	assert.NotContains(t, Render(Found(rec)), "舊資料")
}

func TestRender_Failures(t *testing.T) {
	assert.Equal(t, ForecastNotAvailable, Render(NoForecast(ErrUnavailable)))
	assert.Equal(t, LocationNotResolved, Render(NoLocation(errors.New("zero results"))))
	assert.Equal(t, ForecastNotAvailable, Render(Found(ForecastRecord{Source: SourceCWA})))
	assert.NotEmpty(t, Render(ForecastResult{Outcome: Outcome(99)}))
}
