package spatial

import (
	"math"
)

// Point represents a 2D point with latitude and longitude
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

// IsFinite reports whether both coordinates are finite numbers
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0) &&
		!math.IsNaN(p.Lon) && !math.IsInf(p.Lon, 0)
}

// Centroid calculates the geographic centroid of a set of points
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}

	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Lat
		sumLon += p.Lon
	}

	return Point{
		Lat: sumLat / float64(len(points)),
		Lon: sumLon / float64(len(points)),
	}
}

// RadiusOfGyration calculates the radius of gyration for a set of points
// This measures the spatial dispersion around the centroid
func RadiusOfGyration(points []Point) float64 {
	if len(points) == 0 {
		return 0
	}

	center := Centroid(points)

	var sumSquaredDist float64
	for _, p := range points {
		dist := HaversineDistance(center.Lat, center.Lon, p.Lat, p.Lon)
		sumSquaredDist += dist * dist
	}

	return math.Sqrt(sumSquaredDist / float64(len(points)))
}

// ConvexHull computes the convex hull with the gift-wrapping (Jarvis march) algorithm.
// Longitude is treated as x and latitude as y. Inputs with fewer than 3 points
// (or fewer than 3 distinct positions) are returned unchanged. The hull is
// returned counter-clockwise starting from the westernmost point; collinear
// boundary points are skipped.
func ConvexHull(points []Point) []Point {
	if len(points) < 3 {
		return points
	}

	// Fewer than 3 distinct positions is degenerate too
	pts := dedupe(points)
	if len(pts) < 3 {
		return points
	}

	// Westernmost point (lowest latitude on ties) is always on the hull
	start := 0
	for i := 1; i < len(pts); i++ {
		if pts[i].Lon < pts[start].Lon || (pts[i].Lon == pts[start].Lon && pts[i].Lat < pts[start].Lat) {
			start = i
		}
	}

	hull := make([]Point, 0, 8)
	current := start
	for len(hull) <= len(pts) {
		hull = append(hull, pts[current])

		next := (current + 1) % len(pts)
		for i := range pts {
			if i == current {
				continue
			}
			c := cross(pts[current], pts[next], pts[i])
			if c < 0 || (c == 0 && dist2(pts[current], pts[i]) > dist2(pts[current], pts[next])) {
				next = i
			}
		}

		current = next
		if current == start {
			break
		}
	}

	return hull
}

// Subsample keeps every stride-th point, always including the first and last
// point of the input. A result that would drop below 3 points falls back to
// the full input.
func Subsample(points []Point, stride int) []Point {
	if stride <= 1 || len(points) <= 3 {
		return points
	}

	out := make([]Point, 0, len(points)/stride+2)
	for i := 0; i < len(points); i += stride {
		out = append(out, points[i])
	}
	if last := len(points) - 1; last%stride != 0 {
		out = append(out, points[last])
	}

	if len(out) < 3 {
		return points
	}
	return out
}

// PolygonArea calculates the area of a polygon using the shoelace formula
// Points should be in order (clockwise or counter-clockwise)
// Returns area in square meters (approximate, small polygons only)
func PolygonArea(points []Point) float64 {
	if len(points) < 3 {
		return 0
	}

	var sum float64
	for i := 0; i < len(points); i++ {
		j := (i + 1) % len(points)
		sum += (points[j].Lon - points[i].Lon) * (points[j].Lat + points[i].Lat)
	}

	// Convert to square meters (approximate)
	latRad := points[0].Lat * math.Pi / 180
	metersPerDegreeLat := 111320.0
	metersPerDegreeLon := 111320.0 * math.Cos(latRad)

	return math.Abs(sum) * metersPerDegreeLat * metersPerDegreeLon / 2.0
}

// cross returns the z component of (a-o) x (b-o)
func cross(o, a, b Point) float64 {
	return (a.Lon-o.Lon)*(b.Lat-o.Lat) - (a.Lat-o.Lat)*(b.Lon-o.Lon)
}

func dist2(a, b Point) float64 {
	dLat := a.Lat - b.Lat
	dLon := a.Lon - b.Lon
	return dLat*dLat + dLon*dLon
}

// dedupe drops repeated positions, keeping first occurrences in order
func dedupe(points []Point) []Point {
	seen := make(map[Point]struct{}, len(points))
	out := make([]Point, 0, len(points))
	for _, p := range points {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
