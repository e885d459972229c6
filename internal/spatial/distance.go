package spatial

import (
	"github.com/golang/geo/s2"
)

// HaversineDistance calculates the great-circle distance between two points in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// PerimeterMeters returns the great-circle length of a closed ring
func PerimeterMeters(ring []Point) float64 {
	if len(ring) < 2 {
		return 0
	}

	var total float64
	for i := range ring {
		j := (i + 1) % len(ring)
		total += HaversineDistance(ring[i].Lat, ring[i].Lon, ring[j].Lat, ring[j].Lon)
	}
	return total
}

// EarthRadiusMeters is Earth's mean radius
const EarthRadiusMeters = 6371000.0
