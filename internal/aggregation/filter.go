package aggregation

import "github.com/jengzang/permit-map-backend-go/internal/models"

// FilterPoints applies the category filter to a point set.
// The result depends only on its inputs; "all" returns the input unchanged.
func FilterPoints(points []models.Point, f models.FilterState) []models.Point {
	if points == nil {
		return []models.Point{}
	}
	if f.IsAll() {
		return points
	}

	allowed := make(map[models.Category]struct{}, len(f.Categories))
	for _, c := range f.Categories {
		allowed[c] = struct{}{}
	}

	out := make([]models.Point, 0, len(points))
	for _, p := range points {
		if _, ok := allowed[p.Category]; ok {
			out = append(out, p)
		}
	}
	return out
}

// highlightPoint reports whether a point matches the highlight predicate
func highlightPoint(p models.Point, f models.FilterState) bool {
	if f.HighlightZip != "" && p.ZipCode == f.HighlightZip {
		return true
	}
	return f.HighlightClusterID != nil && p.ClusterID == *f.HighlightClusterID
}

// HighlightClusters flags clusters matching the highlight cluster id.
// Entities are never removed; the number flagged is returned.
func HighlightClusters(clusters []models.ClusterDisplayEntity, f models.FilterState) int {
	n := 0
	for i := range clusters {
		clusters[i].Highlighted = f.HighlightClusterID != nil && clusters[i].ClusterID == *f.HighlightClusterID
		if clusters[i].Highlighted {
			n++
		}
	}
	return n
}

// HighlightBuckets flags buckets containing the highlighted zip or cluster
func HighlightBuckets(buckets []models.GridBucket, f models.FilterState) int {
	n := 0
	for i := range buckets {
		b := &buckets[i]
		b.Highlighted = false
		if f.HighlightZip != "" {
			for _, z := range b.ZipCodes {
				if z == f.HighlightZip {
					b.Highlighted = true
					break
				}
			}
		}
		if !b.Highlighted && f.HighlightClusterID != nil {
			for _, id := range b.ClusterIDs {
				if id == *f.HighlightClusterID {
					b.Highlighted = true
					break
				}
			}
		}
		if b.Highlighted {
			n++
		}
	}
	return n
}

// HighlightPoints wraps points into markers flagged by the highlight predicate
func HighlightPoints(points []models.Point, f models.FilterState) ([]models.PointMarker, int) {
	markers := make([]models.PointMarker, len(points))
	n := 0
	for i, p := range points {
		markers[i] = models.PointMarker{Point: p, Highlighted: highlightPoint(p, f)}
		if markers[i].Highlighted {
			n++
		}
	}
	return markers, n
}
