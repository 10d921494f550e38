// Package app assembles adapters from configuration. The commands share it so
// the service, the debug CLI and the snapshot tool resolve forecasts the same
// way.
package app

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/adapter/cwa"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/adapter/googlemaps"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/adapter/openmeteo"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/adapter/openweather"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/adapter/snapshot"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/config"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/forecast"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/observability"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/textconv"
)

// Geocoder builds the Google Maps client. Callers add the per-run cache.
func Geocoder(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *googlemaps.Client {
	return googlemaps.NewClient(googlemaps.Config{
		APIKey:          cfg.GoogleMapsAPIKey,
		Language:        cfg.Language,
		Region:          cfg.Region,
		Timeout:         cfg.HTTPTimeout,
		BreakerFailures: cfg.BreakerFailures,
	}, metrics, logger)
}

// Providers builds the forecast tiers in PROVIDER_ORDER. Tiers without
// credentials are skipped and logged; tiers listed in skip are left out.
func Providers(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger, skip ...domain.Source) ([]domain.WeatherProvider, error) {
	conv, err := textconv.New(cfg.ScriptConversion, logger)
	if err != nil {
		return nil, err
	}
	skipped := make(map[domain.Source]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}

	var ow, om domain.WeatherProvider
	if cfg.OpenWeatherAPIKey != "" {
		ow = openweather.NewProvider(openweather.Config{
			APIKey:          cfg.OpenWeatherAPIKey,
			Language:        cfg.Language,
			Timeout:         cfg.HTTPTimeout,
			BreakerFailures: cfg.BreakerFailures,
		}, conv, metrics, logger)
	}
	if cfg.OpenMeteoEnabled {
		om = openmeteo.NewProvider(openmeteo.Config{
			Timeout:         cfg.HTTPTimeout,
			BreakerFailures: cfg.BreakerFailures,
		}, metrics, logger)
	}

	var out []domain.WeatherProvider
	for _, src := range cfg.ProviderOrder {
		if skipped[src] {
			continue
		}
		switch src {
		case domain.SourceOpenWeather:
			if ow == nil {
				logger.Info("provider disabled", "provider", src, "reason", "OPENWEATHER_API_KEY not set")
				continue
			}
			out = append(out, ow)
		case domain.SourceCWA:
			if cfg.CWAAPIKey == "" {
				logger.Info("provider disabled", "provider", src, "reason", "CWA_API_KEY not set")
				continue
			}
			out = append(out, cwa.NewProvider(cwa.Config{
				APIKey:          cfg.CWAAPIKey,
				Dataset:         cfg.CWADataset,
				HorizonDays:     cfg.CWAHorizonDays,
				Timeout:         cfg.HTTPTimeout,
				BreakerFailures: cfg.BreakerFailures,
			}, conv, metrics, logger))
		case domain.SourceOpenMeteo:
			if om == nil {
				logger.Info("provider disabled", "provider", src, "reason", "OPENMETEO_ENABLED is false")
				continue
			}
			out = append(out, om)
		case domain.SourceNearby:
			// Probes the first coordinate-keyed tier available.
			inner := ow
			if inner == nil {
				inner = om
			}
			if inner == nil {
				logger.Info("provider disabled", "provider", src, "reason", "no coordinate-keyed provider")
				continue
			}
			out = append(out, forecast.NewNearbyProvider(inner))
		case domain.SourceSnapshot:
			if cfg.SnapshotPath == "" {
				logger.Info("provider disabled", "provider", src, "reason", "SNAPSHOT_PATH not set")
				continue
			}
			p, err := snapshot.Load(cfg.SnapshotPath)
			if err != nil {
				return nil, fmt.Errorf("snapshot provider: %w", err)
			}
			logger.Info("snapshot loaded", "path", cfg.SnapshotPath, "entries", p.Len())
			out = append(out, p)
		default:
			return nil, fmt.Errorf("unknown provider %q", src)
		}
	}
	return out, nil
}

// Chain builds the forecast chain over Providers.
func Chain(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger, skip ...domain.Source) (*forecast.Chain, error) {
	providers, err := Providers(cfg, metrics, logger, skip...)
	if err != nil {
		return nil, err
	}
	chain := forecast.NewChain(providers, metrics, logger)
	logger.Info("forecast chain ready", "providers", chain.Sources())
	return chain, nil
}
