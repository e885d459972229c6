package aggregation

import (
	"github.com/jengzang/permit-map-backend-go/internal/models"
)

// Snapshot is the zoom-independent result of one full rebuild
type Snapshot struct {
	Filter   models.FilterState
	Points   []models.Point // Filtered points deduplicated by id, in arrival order
	Clusters []models.ClusterDisplayEntity
}

// Aggregate runs the full pipeline over every retained batch: filter first,
// then merge clusters. It never patches a previous result.
// A point id seen in several batches is kept once, with the same choice the
// cluster merger makes, so grid and marker counts agree with cluster counts.
func Aggregate(batches [][]models.Point, filter models.FilterState, in EntityInputs) Snapshot {
	merger := NewClusterMerger()
	filtered := make([]models.Point, 0)
	seen := make(map[string]int)
	for _, batch := range batches {
		kept := FilterPoints(batch, filter)
		merger.Add(kept)
		for _, p := range kept {
			if p.ID == "" {
				filtered = append(filtered, p)
				continue
			}
			if i, ok := seen[p.ID]; ok {
				if lessPoint(p.Position, filtered[i].Position) {
					filtered[i] = p
				}
				continue
			}
			seen[p.ID] = len(filtered)
			filtered = append(filtered, p)
		}
	}

	return Snapshot{
		Filter:   filter,
		Points:   filtered,
		Clusters: merger.Entities(in),
	}
}

// Render produces the view for one zoom level from a snapshot.
// Highlighting is applied to copies; the snapshot is left untouched.
func Render(s Snapshot, zoom float64, simple bool, opts Options) models.MapView {
	view := models.MapView{
		Mode:     SelectLOD(zoom, simple, opts),
		Zoom:     zoom,
		Clusters: []models.ClusterDisplayEntity{},
		Buckets:  []models.GridBucket{},
		Points:   []models.PointMarker{},
	}

	switch view.Mode {
	case models.ModeClustered:
		view.Clusters = append(view.Clusters, s.Clusters...)
		if s.Filter.HasHighlight() {
			view.Highlighted = HighlightClusters(view.Clusters, s.Filter)
		}
		view.Shown, view.Total = len(view.Clusters), len(view.Clusters)

	case models.ModeGrid:
		view.Buckets = BucketPoints(s.Points, CellSizeForZoom(zoom, opts.GridSteps), opts)
		if s.Filter.HasHighlight() {
			view.Highlighted = HighlightBuckets(view.Buckets, s.Filter)
		}
		view.Shown, view.Total = len(view.Buckets), len(view.Buckets)

	default:
		shown, truncated := TruncateMarkers(s.Points, opts.MaxMarkers)
		view.Points, view.Highlighted = HighlightPoints(shown, s.Filter)
		view.Shown, view.Total, view.Truncated = len(shown), len(s.Points), truncated
	}

	return view
}
