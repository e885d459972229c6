package aggregation

import "github.com/jengzang/permit-map-backend-go/internal/models"

// SelectLOD picks the rendering tier for a zoom level.
// simple forces individual markers regardless of zoom.
func SelectLOD(zoom float64, simple bool, opts Options) models.LODMode {
	switch {
	case simple:
		return models.ModeIndividual
	case zoom <= opts.ClusterZoom:
		return models.ModeClustered
	case zoom < opts.IndividualZoom:
		return models.ModeGrid
	default:
		return models.ModeIndividual
	}
}

// TruncateMarkers caps points at max by truncation, keeping input order.
// It returns the kept points and whether any were cut.
func TruncateMarkers(points []models.Point, max int) ([]models.Point, bool) {
	if max <= 0 || len(points) <= max {
		return points, false
	}
	return points[:max], true
}
