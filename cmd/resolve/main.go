// Command resolve shows how a location text resolves: geocoding, the
// administrative area, every forecast tier tried, and the rendered line that
// would appear in a report.
//
// Usage:
//
//	go run ./cmd/resolve -location '羅東運動公園（北門）' -hour 9
//	go run ./cmd/resolve -location 台北101 -today 2026-10-16 -text
//
// Only GOOGLE_MAPS_API_KEY and the weather provider settings are needed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/app"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/config"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/itinerary"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/observability"
)

func main() {
	locationText := flag.String("location", "", "free-text event location")
	hour := flag.Int("hour", -1, "event start hour 0-23; midday when omitted")
	today := flag.String("today", "", "pretend today is this date (YYYY-MM-DD)")
	textOnly := flag.Bool("text", false, "print only the rendered forecast line")
	flag.Parse()

	if *locationText == "" {
		flag.Usage()
		os.Exit(2)
	}
	if code := run(*locationText, *hour, *today, *textOnly); code != 0 {
		os.Exit(code)
	}
}

func run(text string, hour int, today string, textOnly bool) int {
	cfg, err := config.LoadLookup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	logger := observability.NewLogger(cfg.LogLevel, "text")
	metrics := observability.NewMetrics()

	clock := clockwork.NewRealClock()
	if today != "" {
		d, err := time.ParseInLocation(time.DateOnly, today, cfg.Location)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: invalid -today: %v\n", err)
			return 2
		}
		// Same evening hour the scheduled run uses.
		clock = clockwork.NewFakeClockAt(d.Add(20 * time.Hour))
	}

	chain, err := app.Chain(cfg, metrics, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	reporter := itinerary.NewReporter(itinerary.Config{
		Geocoder:         app.Geocoder(cfg, metrics, logger),
		Chain:            chain,
		Location:         cfg.Location,
		GeocodeCacheSize: cfg.GeocodeCacheSize,
		Clock:            clock,
		Metrics:          metrics,
		Logger:           logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := reporter.Debug(ctx, text, hour)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 2
	}

	if textOnly {
		fmt.Println(res.Forecast)
		return 0
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: encode result: %v\n", err)
		return 1
	}
	if res.Outcome != "found" {
		return 3
	}
	return 0
}
