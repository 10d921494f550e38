package location

import "github.com/couchcryptid/itinerary-weather-notifier/internal/domain"

// Offset is a probe displacement in degrees.
type Offset struct {
	DLat float64
	DLon float64
}

var nearbyOffsets = []Offset{
	{DLat: 0.05}, {DLat: -0.05},
	{DLon: 0.05}, {DLon: -0.05},
	{DLat: 0.1}, {DLat: -0.1},
	{DLon: 0.1}, {DLon: -0.1},
}

// NearbyOffsets returns the probe displacements in the order they are tried:
// ±0.05° latitude, ±0.05° longitude, then the same at 0.1°.
func NearbyOffsets() []Offset {
	return append([]Offset(nil), nearbyOffsets...)
}

// NearbyProbes returns the coordinates around c to try when c itself has no
// forecast. c is left unchanged.
func NearbyProbes(c domain.Coordinate) []domain.Coordinate {
	probes := make([]domain.Coordinate, len(nearbyOffsets))
	for i, off := range nearbyOffsets {
		probes[i] = c.Offset(off.DLat, off.DLon)
	}
	return probes
}
