package aggregation

import (
	"github.com/jengzang/permit-map-backend-go/internal/models"
	"github.com/jengzang/permit-map-backend-go/internal/spatial"
)

// BuildBoundary hulls one cluster's boundary point set.
// Large sets are subsampled at opts.HullStride first.
func BuildBoundary(points []spatial.Point, opts Options) []spatial.Point {
	if len(points) > opts.HullSubsampleMin {
		points = spatial.Subsample(points, opts.HullStride)
	}
	return spatial.ConvexHull(points)
}

// BuildBoundaries groups geography features by cluster id and hulls each group.
// Features with non-finite positions are skipped.
func BuildBoundaries(features []models.GeoFeature, opts Options) map[int][]spatial.Point {
	groups := make(map[int][]spatial.Point)
	for _, f := range features {
		if !f.Position.IsFinite() {
			continue
		}
		groups[f.ClusterID] = append(groups[f.ClusterID], f.Position)
	}

	boundaries := make(map[int][]spatial.Point, len(groups))
	for id, pts := range groups {
		boundaries[id] = BuildBoundary(pts, opts)
	}
	return boundaries
}
