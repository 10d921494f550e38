// Package snapshot implements the last-resort forecast tier: a static file
// of per-area forecasts, written ahead of time by cmd/snapshot or by hand.
//
// The file is YAML (JSON also parses, being a subset):
//
//	generated_at: 2026-10-14T20:00:00+08:00
//	target_date: 2026-10-15
//	entries:
//	  羅東鎮:
//	    description: 多雲
//	    temp_min_c: 23
//	    temp_max_c: 26
//	    precipitation_pct: 20
//	    uv_index: 6
//	  default:
//	    description: 晴時多雲
//
// Entries are looked up by the place's township, county and province names,
// then its query text, then "default". When target_date is set and differs
// from the day asked about, records are marked stale.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
)

// DefaultKey is the entry used when nothing more specific matches.
const DefaultKey = "default"

// File is the on-disk snapshot. TargetDate is YYYY-MM-DD, or empty for a
// file that applies to any day.
type File struct {
	GeneratedAt time.Time        `yaml:"generated_at,omitempty"`
	TargetDate  string           `yaml:"target_date,omitempty"`
	Entries     map[string]Entry `yaml:"entries"`
}

// Entry is one area's forecast.
type Entry struct {
	Description      string   `yaml:"description,omitempty"`
	TemperatureC     *float64 `yaml:"temperature_c,omitempty"`
	TempMinC         *float64 `yaml:"temp_min_c,omitempty"`
	TempMaxC         *float64 `yaml:"temp_max_c,omitempty"`
	FeelsLikeC       *float64 `yaml:"feels_like_c,omitempty"`
	PrecipitationPct *float64 `yaml:"precipitation_pct,omitempty"`
	UVIndex          *float64 `yaml:"uv_index,omitempty"`
}

// EntryFromRecord captures a live record for writing to a snapshot.
func EntryFromRecord(r domain.ForecastRecord) Entry {
	return Entry{
		Description:      r.Description,
		TemperatureC:     r.TemperatureC,
		TempMinC:         r.TempMinC,
		TempMaxC:         r.TempMaxC,
		FeelsLikeC:       r.FeelsLikeC,
		PrecipitationPct: r.PrecipitationPct,
		UVIndex:          r.UVIndex,
	}
}

func (e Entry) record(validAt time.Time) domain.ForecastRecord {
	return domain.ForecastRecord{
		Description:      e.Description,
		TemperatureC:     e.TemperatureC,
		TempMinC:         e.TempMinC,
		TempMaxC:         e.TempMaxC,
		FeelsLikeC:       e.FeelsLikeC,
		PrecipitationPct: e.PrecipitationPct,
		UVIndex:          e.UVIndex,
		Source:           domain.SourceSnapshot,
		ValidAt:          validAt,
	}
}

// Decode reads a snapshot.
func Decode(r io.Reader) (File, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, errors.New("snapshot is empty")
		}
		return File{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if f.TargetDate != "" {
		if _, err := time.Parse(time.DateOnly, f.TargetDate); err != nil {
			return File{}, fmt.Errorf("snapshot target_date %q: %w", f.TargetDate, err)
		}
	}
	return f, nil
}

// Encode writes f as YAML.
func Encode(w io.Writer, f File) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return enc.Close()
}

// Provider implements domain.WeatherProvider over a loaded File.
type Provider struct {
	file File
}

// Load reads the snapshot at path.
func Load(path string) (*Provider, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer fh.Close()

	f, err := Decode(fh)
	if err != nil {
		return nil, err
	}
	return NewProvider(f), nil
}

// NewProvider wraps an already decoded File. Entry keys are normalised
// (台 → 臺) so lookups match agency spellings either way.
func NewProvider(f File) *Provider {
	entries := make(map[string]Entry, len(f.Entries))
	for k, v := range f.Entries {
		entries[normalizeKey(k)] = v
	}
	f.Entries = entries
	return &Provider{file: f}
}

func (p *Provider) Name() domain.Source { return domain.SourceSnapshot }

// Len reports the number of entries, for start-up logging.
func (p *Provider) Len() int { return len(p.file.Entries) }

// TryResolve returns the most specific matching entry, marked stale when the
// file was written for another day.
func (p *Provider) TryResolve(_ context.Context, place domain.Place, w domain.ForecastWindow) (domain.ForecastRecord, error) {
	area := place.Area
	for _, key := range []string{area.Level3, area.Level2, area.Level1, place.Query, DefaultKey} {
		if key == "" {
			continue
		}
		e, ok := p.file.Entries[normalizeKey(key)]
		if !ok {
			continue
		}
		rec := e.record(w.At())
		if !rec.HasData() {
			continue
		}
		rec.StaleFrom = p.staleFrom(w)
		return rec, nil
	}
	return domain.ForecastRecord{}, domain.Unavailable(domain.SourceSnapshot, domain.KindEmpty,
		fmt.Errorf("no snapshot entry for %q", place.Query))
}

func (p *Provider) staleFrom(w domain.ForecastWindow) time.Time {
	if p.file.TargetDate == "" || p.file.TargetDate == w.TargetDate.Format(time.DateOnly) {
		return time.Time{}
	}
	d, err := time.ParseInLocation(time.DateOnly, p.file.TargetDate, w.Location())
	if err != nil {
		return time.Time{}
	}
	return d
}

func normalizeKey(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "台", "臺")
}
