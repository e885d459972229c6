package aggregation

import (
	"math"

	"github.com/jengzang/permit-map-backend-go/internal/models"
	"github.com/jengzang/permit-map-backend-go/internal/spatial"
)

func pt(id string, lat, lon float64, cat models.Category, cluster int) models.Point {
	return models.Point{
		ID:        id,
		Position:  spatial.Point{Lat: lat, Lon: lon},
		Category:  cat,
		ClusterID: cluster,
	}
}

func raw(id string, lat, lon interface{}, cat string, cluster int) models.RawPoint {
	c := cluster
	return models.RawPoint{ID: id, Latitude: lat, Longitude: lon, Category: cat, ClusterID: &c}
}

func approx(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func spatialPoint(lat, lon float64) spatial.Point {
	return spatial.Point{Lat: lat, Lon: lon}
}

func intPtr(v int) *int {
	return &v
}
