package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
)

const (
	minHTTPTimeout = 1 * time.Second
	maxHTTPTimeout = 30 * time.Second
)

// DefaultProviderOrder is the forecast chain order when PROVIDER_ORDER is unset.
var DefaultProviderOrder = []domain.Source{
	domain.SourceOpenWeather,
	domain.SourceCWA,
	domain.SourceOpenMeteo,
	domain.SourceNearby,
	domain.SourceSnapshot,
}

// Config holds all service settings, populated from environment variables.
// It is built once at start-up and never mutated afterwards.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	Schedule        string
	ReadyWithoutRun bool

	// Region the reports are written for.
	Location         *time.Location
	Language         string
	Region           string
	ScriptConversion string

	// Calendar and notification channel.
	GoogleCredentials string
	CalendarID        string
	LineToken         string
	GroupID           string
	KafkaBrokers      []string
	KafkaTopic        string

	// Geocoding.
	GoogleMapsAPIKey string
	GeocodeCacheSize int

	// Weather providers.
	OpenWeatherAPIKey string
	CWAAPIKey         string
	CWADataset        string
	CWAHorizonDays    int
	OpenMeteoEnabled  bool
	SnapshotPath      string
	ProviderOrder     []domain.Source

	HTTPTimeout     time.Duration
	BreakerFailures int
}

// Load reads the full service configuration, applying defaults where unset.
// A .env file in the working directory is loaded first if present; real
// environment variables take precedence over it.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	for _, req := range []struct{ name, value string }{
		{"LINE_TOKEN", cfg.LineToken},
		{"GROUP_ID", cfg.GroupID},
		{"GOOGLE_CREDENTIALS", cfg.GoogleCredentials},
	} {
		if req.value == "" {
			return nil, fmt.Errorf("%s is required", req.name)
		}
	}
	return cfg, nil
}

// LoadLookup reads the configuration needed to resolve locations and
// forecasts only, without the calendar and notification credentials. The
// command-line tools use it.
func LoadLookup() (*Config, error) {
	return load()
}

func load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	if shutdownTimeout <= 0 {
		return nil, errors.New("invalid SHUTDOWN_TIMEOUT: must be positive")
	}

	httpTimeout, err := parseDuration("HTTP_TIMEOUT", "8s")
	if err != nil {
		return nil, err
	}
	if httpTimeout < minHTTPTimeout || httpTimeout > maxHTTPTimeout {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: must be between %s and %s", minHTTPTimeout, maxHTTPTimeout)
	}

	loc, err := time.LoadLocation(envOrDefault("TIMEZONE", "Asia/Taipei"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	horizon, err := parsePositiveInt("CWA_HORIZON_DAYS", 3)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("GEOCODE_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}
	breakerFailures, err := parsePositiveInt("BREAKER_FAILURES", 5)
	if err != nil {
		return nil, err
	}

	openMeteo, err := parseBool("OPENMETEO_ENABLED", true)
	if err != nil {
		return nil, err
	}
	readyWithoutRun, err := parseBool("READY_WITHOUT_RUN", false)
	if err != nil {
		return nil, err
	}

	order, err := parseProviderOrder(os.Getenv("PROVIDER_ORDER"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		Schedule:        envOrDefault("SCHEDULE", "0 0 20 * * *"),
		ReadyWithoutRun: readyWithoutRun,

		Location:         loc,
		Language:         envOrDefault("LANGUAGE", "zh-TW"),
		Region:           envOrDefault("REGION", "tw"),
		ScriptConversion: envOrDefault("SCRIPT_CONVERSION", "s2twp"),

		GoogleCredentials: os.Getenv("GOOGLE_CREDENTIALS"),
		CalendarID:        envOrDefault("CALENDAR_ID", "primary"),
		LineToken:         os.Getenv("LINE_TOKEN"),
		GroupID:           os.Getenv("GROUP_ID"),
		KafkaBrokers:      parseList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:        envOrDefault("KAFKA_TOPIC", "itinerary-reports"),

		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
		GeocodeCacheSize: cacheSize,

		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		CWAAPIKey:         os.Getenv("CWA_API_KEY"),
		CWADataset:        envOrDefault("CWA_DATASET", "F-D0047-089"),
		CWAHorizonDays:    horizon,
		OpenMeteoEnabled:  openMeteo,
		SnapshotPath:      os.Getenv("SNAPSHOT_PATH"),
		ProviderOrder:     order,

		HTTPTimeout:     httpTimeout,
		BreakerFailures: breakerFailures,
	}

	if cfg.GoogleMapsAPIKey == "" {
		return nil, errors.New("GOOGLE_MAPS_API_KEY is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether the report sink should be started.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseProviderOrder(s string) ([]domain.Source, error) {
	names := parseList(s)
	if len(names) == 0 {
		return append([]domain.Source(nil), DefaultProviderOrder...), nil
	}

	known := make(map[domain.Source]bool, len(DefaultProviderOrder))
	for _, src := range DefaultProviderOrder {
		known[src] = true
	}

	seen := make(map[domain.Source]bool, len(names))
	order := make([]domain.Source, 0, len(names))
	for _, name := range names {
		src := domain.Source(strings.ToLower(name))
		if !known[src] {
			return nil, fmt.Errorf("invalid PROVIDER_ORDER: unknown provider %q", name)
		}
		if seen[src] {
			return nil, fmt.Errorf("invalid PROVIDER_ORDER: %q listed twice", name)
		}
		seen[src] = true
		order = append(order, src)
	}
	if seen[domain.SourceSnapshot] && order[len(order)-1] != domain.SourceSnapshot {
		return nil, errors.New("invalid PROVIDER_ORDER: snapshot must be last")
	}
	return order, nil
}
