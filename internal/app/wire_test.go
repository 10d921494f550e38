package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/config"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/observability"
)

func baseConfig() *config.Config {
	return &config.Config{
		Language:         "zh-TW",
		Region:           "tw",
		ScriptConversion: "none",
		OpenMeteoEnabled: true,
		ProviderOrder:    append([]domain.Source(nil), config.DefaultProviderOrder...),
		HTTPTimeout:      time.Second,
		BreakerFailures:  5,
		CWAHorizonDays:   3,
	}
}

func sources(ps []domain.WeatherProvider) []domain.Source {
	out := make([]domain.Source, len(ps))
	for i, p := range ps {
		out[i] = p.Name()
	}
	return out
}

func TestProviders_SkipsUnconfigured(t *testing.T) {
	ps, err := Providers(baseConfig(), nil, observability.DiscardLogger())
	require.NoError(t, err)

	// No keys and no snapshot: only the keyless tier and its nearby probe.
	assert.Equal(t, []domain.Source{domain.SourceOpenMeteo, domain.SourceNearby}, sources(ps))
}

func TestProviders_AllConfigured(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entries:\n  default:\n    description: 晴\n"), 0o600))

	cfg := baseConfig()
	cfg.OpenWeatherAPIKey = "ow"
	cfg.CWAAPIKey = "cwa"
	cfg.SnapshotPath = path

	ps, err := Providers(cfg, nil, observability.DiscardLogger())
	require.NoError(t, err)
	assert.Equal(t, config.DefaultProviderOrder, sources(ps))
}

func TestProviders_SkipList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entries:\n  default:\n    description: 晴\n"), 0o600))
	cfg := baseConfig()
	cfg.SnapshotPath = path

	ps, err := Providers(cfg, nil, observability.DiscardLogger(), domain.SourceSnapshot, domain.SourceNearby)
	require.NoError(t, err)
	assert.Equal(t, []domain.Source{domain.SourceOpenMeteo}, sources(ps))
}

func TestProviders_BadSnapshot(t *testing.T) {
	cfg := baseConfig()
	cfg.SnapshotPath = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Providers(cfg, nil, observability.DiscardLogger())
	require.Error(t, err)
}

func TestChain_Order(t *testing.T) {
	cfg := baseConfig()
	cfg.CWAAPIKey = "cwa"
	cfg.ProviderOrder = []domain.Source{domain.SourceCWA, domain.SourceOpenMeteo}

	chain, err := Chain(cfg, nil, observability.DiscardLogger())
	require.NoError(t, err)
	assert.Equal(t, []domain.Source{domain.SourceCWA, domain.SourceOpenMeteo}, chain.Sources())
}
