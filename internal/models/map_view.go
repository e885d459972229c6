package models

// LODMode is the rendering tier selected for a zoom level
type LODMode string

const (
	ModeClustered  LODMode = "CLUSTERED"
	ModeGrid       LODMode = "GRID"
	ModeIndividual LODMode = "INDIVIDUAL"
)

// RebuildState is the state of a map view's two-input rebuild coordinator
type RebuildState string

const (
	StateEmpty      RebuildState = "EMPTY"
	StatePointsOnly RebuildState = "POINTS_ONLY"
	StateTotalsOnly RebuildState = "TOTALS_ONLY"
	StateReady      RebuildState = "READY"
)

// Source names the upstream inputs of a map view
type Source string

const (
	SourcePoints    Source = "points"
	SourceTotals    Source = "totals"
	SourceGeography Source = "geography"
)

// MapView is what a map view renders for one zoom level.
// Exactly one of Clusters, Buckets or Points is populated, depending on Mode.
type MapView struct {
	Mode       LODMode                `json:"mode"`
	Zoom       float64                `json:"zoom"`
	State      RebuildState           `json:"state"`
	Generation uint64                 `json:"generation"`
	Clusters   []ClusterDisplayEntity `json:"clusters"`
	Buckets    []GridBucket           `json:"buckets"`
	Points     []PointMarker          `json:"points"`

	// Individual mode truncation: Shown of Total filtered points are returned
	Shown     int  `json:"shown"`
	Total     int  `json:"total"`
	Truncated bool `json:"truncated"`

	SourceTruncated bool `json:"source_truncated"` // Point fetch hit its limit
	Dropped         int  `json:"dropped"`          // Records dropped by the normalizer
	Highlighted     int  `json:"highlighted"`      // Entities flagged by the highlight predicate

	Errors map[Source]string `json:"errors,omitempty"` // Non-blocking fetch failures
}
