package aggregation

import (
	"math"
	"sort"

	"github.com/jengzang/permit-map-backend-go/internal/models"
	"github.com/jengzang/permit-map-backend-go/internal/spatial"
)

// CellSizeForZoom returns the grid cell size in degrees for a zoom level.
// Lower zoom = larger cells; steps are validated to never grow with zoom.
func CellSizeForZoom(zoom float64, steps []GridStep) float64 {
	if len(steps) == 0 {
		return 0
	}

	size := steps[0].CellSize
	for _, step := range steps {
		if zoom < step.MinZoom {
			break
		}
		size = step.CellSize
	}
	return size
}

// RadiusHint returns the marker radius for a bucket, growing with sqrt(count)
func RadiusHint(count int, opts Options) float64 {
	r := opts.RadiusBase + opts.RadiusScale*math.Sqrt(float64(count))
	if r < opts.RadiusMin {
		return opts.RadiusMin
	}
	if r > opts.RadiusMax {
		return opts.RadiusMax
	}
	return r
}

// cellAccumulator collects the members of one grid cell
type cellAccumulator struct {
	key       models.CellKey
	positions []spatial.Point
	counts    map[models.Category]int
	order     []models.Category // First-seen order of categories
	clusters  map[int]struct{}
	zips      map[string]struct{}
}

// BucketPoints aggregates points into fixed-size cells.
// Buckets are returned in order of each cell's first appearance in points.
func BucketPoints(points []models.Point, cellSize float64, opts Options) []models.GridBucket {
	if len(points) == 0 || cellSize <= 0 {
		return []models.GridBucket{}
	}

	cellMap := make(map[models.CellKey]*cellAccumulator)
	var order []*cellAccumulator

	for _, p := range points {
		key := models.CellKey{
			Row: int64(math.Floor(p.Position.Lat / cellSize)),
			Col: int64(math.Floor(p.Position.Lon / cellSize)),
		}

		cell, exists := cellMap[key]
		if !exists {
			cell = &cellAccumulator{
				key:      key,
				counts:   make(map[models.Category]int),
				clusters: make(map[int]struct{}),
				zips:     make(map[string]struct{}),
			}
			cellMap[key] = cell
			order = append(order, cell)
		}

		cell.positions = append(cell.positions, p.Position)
		if _, seen := cell.counts[p.Category]; !seen {
			cell.order = append(cell.order, p.Category)
		}
		cell.counts[p.Category]++
		cell.clusters[p.ClusterID] = struct{}{}
		if p.ZipCode != "" {
			cell.zips[p.ZipCode] = struct{}{}
		}
	}

	buckets := make([]models.GridBucket, 0, len(order))
	for _, cell := range order {
		count := len(cell.positions)
		buckets = append(buckets, models.GridBucket{
			CellKey:          cell.key,
			CellSize:         cellSize,
			Centroid:         spatial.Centroid(cell.positions),
			MemberCount:      count,
			DominantCategory: dominantCategory(cell.counts, cell.order),
			RadiusHint:       RadiusHint(count, opts),
			ClusterIDs:       sortedInts(cell.clusters),
			ZipCodes:         sortedStrings(cell.zips),
		})
	}

	return buckets
}

// dominantCategory picks the plurality category.
// Sentinels only win when no signal category is present; ties go to the
// category seen first.
func dominantCategory(counts map[models.Category]int, order []models.Category) models.Category {
	best := models.Category("")
	bestCount := 0
	for _, c := range order {
		if c.IsSentinel() {
			continue
		}
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	if best != "" {
		return best
	}

	for _, c := range order {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	if best == "" {
		return models.CategoryUncategorized
	}
	return best
}

func sortedInts(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func sortedStrings(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
