package googlemaps

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/adapter/upstream"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/observability"
)

const (
	defaultBaseURL = "https://maps.googleapis.com"
	textSearchPath = "/maps/api/place/textsearch/json"
	geocodePath    = "/maps/api/geocode/json"

	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"

	methodForward = "forward"
	methodReverse = "reverse"
)

// Config configures the Google Maps client.
type Config struct {
	APIKey          string
	Language        string // e.g. "zh-TW"
	Region          string // ccTLD region bias, e.g. "tw"
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures int
}

// Client implements domain.Geocoder using Places Text Search for forward
// lookups and the Geocoding API for reverse lookups.
type Client struct {
	api      *upstream.Client
	apiKey   string
	language string
	region   string
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewClient creates a Google Maps geocoding client.
func NewClient(cfg Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		api: upstream.New(upstream.Config{
			Name:            "googlemaps",
			BaseURL:         base,
			Timeout:         cfg.Timeout,
			BreakerFailures: cfg.BreakerFailures,
			Metrics:         metrics,
			Logger:          logger,
		}),
		apiKey:   cfg.APIKey,
		language: cfg.Language,
		region:   cfg.Region,
		metrics:  metrics,
		logger:   logger,
	}
}

// ForwardGeocode converts free text to coordinates.
func (c *Client) ForwardGeocode(ctx context.Context, text string) (domain.GeocodingResult, error) {
	params := map[string]string{
		"query":    text,
		"language": c.language,
		"region":   c.region,
		"key":      c.apiKey,
	}
	res, err := c.lookup(ctx, methodForward, text, textSearchPath, params)
	if err != nil {
		return domain.GeocodingResult{}, err
	}

	r := res.Results[0]
	return domain.GeocodingResult{
		Coordinate:       domain.Coordinate{Lat: r.Geometry.Location.Lat, Lon: r.Geometry.Location.Lng},
		Area:             areaFromResults(res.Results[:1]),
		FormattedAddress: r.FormattedAddress,
		PlaceName:        r.Name,
	}, nil
}

// ReverseGeocode converts coordinates to administrative areas.
func (c *Client) ReverseGeocode(ctx context.Context, coord domain.Coordinate) (domain.GeocodingResult, error) {
	latlng := strconv.FormatFloat(coord.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(coord.Lon, 'f', 6, 64)
	params := map[string]string{
		"latlng":   latlng,
		"language": c.language,
		"key":      c.apiKey,
	}
	res, err := c.lookup(ctx, methodReverse, latlng, geocodePath, params)
	if err != nil {
		return domain.GeocodingResult{}, err
	}

	area := areaFromResults(res.Results)
	if area.IsZero() {
		err := &domain.LookupError{Method: methodReverse, Query: latlng, Kind: domain.KindEmpty}
		c.record(methodReverse, err)
		return domain.GeocodingResult{}, err
	}
	return domain.GeocodingResult{
		Coordinate:       coord,
		Area:             area,
		FormattedAddress: res.Results[0].FormattedAddress,
	}, nil
}

func (c *Client) lookup(ctx context.Context, method, query, path string, params map[string]string) (response, error) {
	var res response
	if err := c.api.GetJSON(ctx, path, params, &res); err != nil {
		le := upstream.LookupError(method, query, err)
		c.record(method, le)
		return response{}, le
	}

	switch {
	case res.Status == statusZeroResults, res.Status == statusOK && len(res.Results) == 0:
		err := &domain.LookupError{Method: method, Query: query, Kind: domain.KindNotFound, Status: res.Status}
		c.record(method, err)
		return response{}, err
	case res.Status != statusOK:
		c.logger.Warn("geocoding request rejected",
			"method", method,
			"query", query,
			"status", res.Status,
			"error_message", res.ErrorMessage,
		)
		err := &domain.LookupError{Method: method, Query: query, Kind: domain.KindStatus, Status: res.Status}
		c.record(method, err)
		return response{}, err
	}

	c.record(method, nil)
	return res, nil
}

func (c *Client) record(method string, err error) {
	if c.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	c.metrics.GeocodeRequests.WithLabelValues(method, outcome).Inc()
}

// areaFromResults reads administrative levels from the first result that has
// them, filling any level it lacks from later results.
func areaFromResults(results []result) domain.AdministrativeArea {
	var area domain.AdministrativeArea
	var locality string
	for _, r := range results {
		for _, comp := range r.AddressComponents {
			name := strings.TrimSpace(comp.LongName)
			if name == "" {
				continue
			}
			switch {
			case comp.hasType("administrative_area_level_1"):
				setIfEmpty(&area.Level1, name)
			case comp.hasType("administrative_area_level_2"):
				setIfEmpty(&area.Level2, name)
			case comp.hasType("administrative_area_level_3"), comp.hasType("sublocality_level_1"):
				setIfEmpty(&area.Level3, name)
			case comp.hasType("locality"):
				setIfEmpty(&locality, name)
			}
		}
	}

	// Special municipalities (臺北市, 新北市, ...) have no level 2.
	if area.Level2 == "" {
		area.Level2 = locality
	}
	if area.Level2 == "" {
		area.Level2 = area.Level1
	}
	return area
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// Google Maps API response types. Text Search and Geocoding share this shape.

type response struct {
	Status       string   `json:"status"`
	ErrorMessage string   `json:"error_message"`
	Results      []result `json:"results"`
}

type result struct {
	Name              string      `json:"name"`
	FormattedAddress  string      `json:"formatted_address"`
	Geometry          geometry    `json:"geometry"`
	AddressComponents []component `json:"address_components"`
}

type geometry struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

type component struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

func (c component) hasType(t string) bool {
	for _, ct := range c.Types {
		if ct == t {
			return true
		}
	}
	return false
}
