package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
)

const sample = `
generated_at: 2026-10-14T20:00:00+08:00
entries:
  羅東鎮:
    description: 多雲
    temp_min_c: 23
    temp_max_c: 26
    precipitation_pct: 20
    uv_index: 6
  台北市:
    description: 陰
    temperature_c: 25
  default:
    description: 晴時多雲
`

var window = domain.MiddayWindow(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), 1)

func load(t *testing.T, src string) *Provider {
	t.Helper()
	f, err := Decode(strings.NewReader(src))
	require.NoError(t, err)
	return NewProvider(f)
}

func TestTryResolve_MostSpecificEntry(t *testing.T) {
	p := load(t, sample)

	rec, err := p.TryResolve(t.Context(), domain.Place{
		Area: domain.AdministrativeArea{Level2: "宜蘭縣", Level3: "羅東鎮"},
	}, window)
	require.NoError(t, err)

	assert.Equal(t, domain.SourceSnapshot, rec.Source)
	assert.Equal(t, "多雲，🌡️ 23～26°C，🌧️ 降雨 20%，☀️ 紫外線 6（🟠 高）", domain.RenderRecord(rec))
	assert.Equal(t, window.At(), rec.ValidAt)
}

func TestTryResolve_NormalisedKeys(t *testing.T) {
	p := load(t, sample)

	// The file says 台北市 and the place says 臺北市; both normalise.
	rec, err := p.TryResolve(t.Context(), domain.Place{
		Area: domain.AdministrativeArea{Level1: "臺北市", Level2: "臺北市", Level3: "中山區"},
	}, window)
	require.NoError(t, err)
	assert.Equal(t, "陰", rec.Description)
}

func TestTryResolve_DefaultEntry(t *testing.T) {
	p := load(t, sample)

	rec, err := p.TryResolve(t.Context(), domain.Place{Query: "墾丁"}, window)
	require.NoError(t, err)
	assert.Equal(t, "晴時多雲", rec.Description)
}

func TestTryResolve_NoMatch(t *testing.T) {
	p := load(t, "entries:\n  羅東鎮:\n    description: 多雲\n")

	_, err := p.TryResolve(t.Context(), domain.Place{Query: "墾丁"}, window)
	assert.Equal(t, domain.KindEmpty, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestDecode_JSON(t *testing.T) {
	p := load(t, `{"entries": {"default": {"description": "晴", "uv_index": 11}}}`)

	rec, err := p.TryResolve(t.Context(), domain.Place{}, window)
	require.NoError(t, err)
	assert.Equal(t, domain.UVExtreme, domain.ClassifyUV(rec.UVIndex))
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(strings.NewReader(""))
	require.Error(t, err)

	_, err = Decode(strings.NewReader("entries: [1, 2"))
	require.Error(t, err)

	_, err = Decode(strings.NewReader("target_date: next monday\nentries: {}\n"))
	require.Error(t, err)
}

func TestTryResolve_MarksOtherDayStale(t *testing.T) {
	p := load(t, "target_date: 2026-10-12\nentries:\n  default:\n    description: 多雲\n    uv_index: 2\n")

	rec, err := p.TryResolve(t.Context(), domain.Place{Query: "墾丁"}, window)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), rec.StaleFrom)
	assert.Equal(t, "（10/12 舊資料）多雲，🌡️ --，🌧️ 降雨 --，☀️ 紫外線 2（🟢 低）", domain.RenderRecord(rec))
}

func TestTryResolve_UndatedFileIsNotStale(t *testing.T) {
	rec, err := load(t, sample).TryResolve(t.Context(), domain.Place{Query: "墾丁"}, window)
	require.NoError(t, err)
	assert.True(t, rec.StaleFrom.IsZero())
}

func TestEncodeDecodeFile(t *testing.T) {
	f := File{
		GeneratedAt: time.Date(2026, 10, 14, 20, 0, 0, 0, time.UTC),
		TargetDate:  "2026-10-15",
		Entries: map[string]Entry{
			"羅東鎮": EntryFromRecord(domain.ForecastRecord{
				Description:  "多雲",
				TemperatureC: domain.Float(25.5),
				UVIndex:      domain.Float(3),
			}),
		},
	}

	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, f))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())

	rec, err := p.TryResolve(t.Context(), domain.Place{Area: domain.AdministrativeArea{Level3: "羅東鎮"}}, window)
	require.NoError(t, err)
	assert.InDelta(t, 25.5, *rec.TemperatureC, 1e-9)
	assert.Nil(t, rec.TempMinC)
	assert.True(t, rec.StaleFrom.IsZero(), "written for the day asked about")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
