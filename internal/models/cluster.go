package models

import "github.com/jengzang/permit-map-backend-go/internal/spatial"

// CountSource tells where a cluster's displayed member count came from
type CountSource string

const (
	CountFromPoints CountSource = "points"
	CountFromTotals CountSource = "totals"
	CountFromFeed   CountSource = "geography"
)

// ClusterDisplayEntity is one aggregated marker for all filtered points sharing a cluster id
type ClusterDisplayEntity struct {
	ClusterID    int             `json:"cluster_id"`
	Centroid     spatial.Point   `json:"centroid"`
	MemberCount  int             `json:"member_count"`
	PointCount   int             `json:"point_count"`  // Point-derived count, always present
	CountSource  CountSource     `json:"count_source"` // "points" or "totals"
	Category     Category        `json:"category"`
	DisplayName  string          `json:"display_name"`
	SpreadMeters float64         `json:"spread_meters"` // Radius of gyration of members
	Boundary     []spatial.Point `json:"boundary,omitempty"`
	AreaSqMeters float64         `json:"area_sq_meters,omitempty"`
	PerimeterM   float64         `json:"perimeter_m,omitempty"`
	Highlighted  bool            `json:"highlighted"`
}

// ClusterInfo is the upstream metadata for a cluster id
type ClusterInfo struct {
	ID       int      `json:"id" db:"id"`
	Name     string   `json:"name" db:"name"`
	Category Category `json:"category" db:"category"`
}

// ClusterUpdateRequest is the body of a cluster metadata update
type ClusterUpdateRequest struct {
	Name     string `json:"name" binding:"required"`
	Category string `json:"category"`
}
