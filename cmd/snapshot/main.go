// Command snapshot writes a forecast snapshot file for the snapshot tier.
// Each named area is resolved through the live forecast tiers for the next
// report's target date, and the results are written as YAML.
//
// Usage:
//
//	go run ./cmd/snapshot -areas 羅東鎮,礁溪鄉,臺北市 -default 臺北市 -out data/snapshot.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/adapter/googlemaps"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/adapter/snapshot"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/app"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/config"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/location"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/observability"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	areas := flag.String("areas", "", "comma-separated area names or places to capture")
	defaultArea := flag.String("default", "", "area whose forecast also becomes the default entry")
	out := flag.String("out", "", "output path for the snapshot YAML")
	today := flag.String("today", "", "pretend today is this date (YYYY-MM-DD)")
	flag.Parse()

	names := splitNames(*areas)
	if len(names) == 0 || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -areas, -out")
	}

	cfg, err := config.LoadLookup()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.LogLevel, "text")
	metrics := observability.NewMetrics()

	clock := clockwork.NewRealClock()
	if *today != "" {
		d, err := time.ParseInLocation(time.DateOnly, *today, cfg.Location)
		if err != nil {
			return fmt.Errorf("invalid -today: %w", err)
		}
		clock = clockwork.NewFakeClockAt(d.Add(20 * time.Hour))
	}

	// A snapshot must come from live data, never from an older snapshot.
	chain, err := app.Chain(cfg, metrics, logger, domain.SourceSnapshot)
	if err != nil {
		return err
	}
	geocoder := googlemaps.NewCachedGeocoder(app.Geocoder(cfg, metrics, logger), cfg.GeocodeCacheSize, metrics)
	resolver := location.NewResolver(geocoder, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	target, offset := domain.ResolveTargetDate(clock.Now().In(cfg.Location))
	window := domain.MiddayWindow(target, offset)

	f := snapshot.File{
		GeneratedAt: clock.Now().In(cfg.Location).Truncate(time.Second),
		TargetDate:  target.Format(time.DateOnly),
		Entries:     make(map[string]snapshot.Entry, len(names)+1),
	}
	for _, name := range names {
		rec, err := capture(ctx, resolver, chain.Resolve, name, window)
		if err != nil {
			log.Printf("%s: skipped: %v", name, err)
			continue
		}
		f.Entries[name] = snapshot.EntryFromRecord(rec)
		log.Printf("%s: %s (%s)", name, domain.RenderRecord(rec), rec.Source)
		if name == *defaultArea {
			f.Entries[snapshot.DefaultKey] = snapshot.EntryFromRecord(rec)
		}
	}
	if len(f.Entries) == 0 {
		return fmt.Errorf("no area produced a forecast")
	}

	if err := writeSnapshot(*out, f); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	log.Printf("wrote %d entries for %s to %s", len(f.Entries), f.TargetDate, *out)
	return nil
}

type resolveFunc func(context.Context, domain.Place, domain.ForecastWindow) domain.ForecastResult

func capture(ctx context.Context, r *location.Resolver, resolve resolveFunc, name string, w domain.ForecastWindow) (domain.ForecastRecord, error) {
	place, err := r.ResolvePlace(ctx, name)
	if err != nil {
		return domain.ForecastRecord{}, err
	}
	res := resolve(ctx, place, w)
	if res.Outcome != domain.OutcomeFound {
		return domain.ForecastRecord{}, res.Err
	}
	return res.Record, nil
}

func splitNames(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeSnapshot(path string, f snapshot.File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := snapshot.Encode(fh, f); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}
