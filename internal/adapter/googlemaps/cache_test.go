package googlemaps

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/observability"
)

// --- mock for cache tests ---

type countingGeocoder struct {
	forwardCalls int
	reverseCalls int
	result       domain.GeocodingResult
	err          error
}

func (m *countingGeocoder) ForwardGeocode(_ context.Context, _ string) (domain.GeocodingResult, error) {
	m.forwardCalls++
	return m.result, m.err
}

func (m *countingGeocoder) ReverseGeocode(_ context.Context, _ domain.Coordinate) (domain.GeocodingResult, error) {
	m.reverseCalls++
	return m.result, m.err
}

// --- CachedGeocoder tests ---

func TestCachedGeocoder_ForwardCacheHit(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{Coordinate: domain.Coordinate{Lat: 25.03, Lon: 121.56}, PlaceName: "台北101"},
	}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedGeocoder(inner, 10, metrics)

	r1, err := cached.ForwardGeocode(t.Context(), "台北101")
	require.NoError(t, err)
	r2, err := cached.ForwardGeocode(t.Context(), "台北101")
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, inner.forwardCalls, "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues(methodForward, "hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues(methodForward, "miss")), 0)
}

func TestCachedGeocoder_ReverseCacheHit(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{Area: domain.AdministrativeArea{Level2: "宜蘭縣", Level3: "羅東鎮"}},
	}
	cached := NewCachedGeocoder(inner, 10, nil)
	coord := domain.Coordinate{Lat: 24.677, Lon: 121.774}

	_, err := cached.ReverseGeocode(t.Context(), coord)
	require.NoError(t, err)
	_, err = cached.ReverseGeocode(t.Context(), coord)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.reverseCalls)
}

func TestCachedGeocoder_ErrorsNotCached(t *testing.T) {
	inner := &countingGeocoder{err: &domain.LookupError{Method: methodForward, Kind: domain.KindTimeout}}
	cached := NewCachedGeocoder(inner, 10, nil)

	_, err := cached.ForwardGeocode(t.Context(), "台北101")
	require.Error(t, err)
	_, err = cached.ForwardGeocode(t.Context(), "台北101")
	require.Error(t, err)

	assert.Equal(t, 2, inner.forwardCalls)
}

func TestCachedGeocoder_ForwardAndReverseKeysDistinct(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{PlaceName: "x"}}
	cached := NewCachedGeocoder(inner, 10, nil)

	_, _ = cached.ForwardGeocode(t.Context(), "25.000000,121.000000")
	_, _ = cached.ReverseGeocode(t.Context(), domain.Coordinate{Lat: 25, Lon: 121})

	assert.Equal(t, 1, inner.forwardCalls)
	assert.Equal(t, 1, inner.reverseCalls)
}

// --- LRU cache tests ---

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", domain.GeocodingResult{PlaceName: "A"})
	c.put("b", domain.GeocodingResult{PlaceName: "B"})

	_, ok := c.get("a") // a is now most recent
	require.True(t, ok)

	c.put("c", domain.GeocodingResult{PlaceName: "C"})

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
	_, ok = c.get("a")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.size())
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", domain.GeocodingResult{PlaceName: "old"})
	c.put("a", domain.GeocodingResult{PlaceName: "new"})

	got, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, "new", got.PlaceName)
	assert.Equal(t, 1, c.size())
}

func TestLRUCache_SingleEntry(t *testing.T) {
	c := newLRUCache(1)
	for i := range 5 {
		c.put(fmt.Sprintf("k%d", i), domain.GeocodingResult{})
	}
	assert.Equal(t, 1, c.size())
	_, ok := c.get("k4")
	assert.True(t, ok)
}

func TestLRUCache_NonPositiveSizeHoldsOne(t *testing.T) {
	c := newLRUCache(0)
	c.put("a", domain.GeocodingResult{})
	c.put("b", domain.GeocodingResult{})
	assert.Equal(t, 1, c.size())
}
