package models

import "github.com/jengzang/permit-map-backend-go/internal/spatial"

// UnclusteredID is the cluster id given to permits without an upstream cluster
const UnclusteredID = -1

// Point is one geocoded permit with validated coordinates
type Point struct {
	ID           string        `json:"id"`
	PermitNumber string        `json:"permit_number,omitempty"`
	Position     spatial.Point `json:"position"`
	Category     Category      `json:"category"`
	ClusterID    int           `json:"cluster_id"`
	ZipCode      string        `json:"zip_code,omitempty"`
	ProjectType  string        `json:"project_type,omitempty"`
	Description  string        `json:"description,omitempty"`
	Value        float64       `json:"value,omitempty"`
	Year         int           `json:"year,omitempty"`
}

// RawPoint is an upstream permit record before validation.
// Coordinates may arrive as numbers, numeric strings, null or NaN.
type RawPoint struct {
	ID           string      `json:"id"`
	PermitNumber string      `json:"permit_number"`
	Latitude     interface{} `json:"latitude"`
	Longitude    interface{} `json:"longitude"`
	Category     string      `json:"category"`
	ClusterID    *int        `json:"cluster_id"`
	ZipCode      string      `json:"zip_code"`
	ProjectType  string      `json:"project_type"`
	Description  string      `json:"description"`
	Value        *float64    `json:"value"`
	Year         *int        `json:"year"`
}

// PointMarker is a point rendered at individual zoom
type PointMarker struct {
	Point
	Highlighted bool `json:"highlighted"`
}

// PointQuery represents the request to the point list source
type PointQuery struct {
	Categories  []Category
	ProjectType string
	Limit       int
}

// PointPage is one response of the point list source.
// The list is capped at Limit by truncation; Truncated reports that more rows matched.
type PointPage struct {
	Records   []RawPoint `json:"records"`
	Limit     int        `json:"limit"`
	Truncated bool       `json:"truncated"`
}

// PointList is the normalized point list returned over HTTP
type PointList struct {
	Points    []Point `json:"points"`
	Dropped   int     `json:"dropped"`
	Limit     int     `json:"limit"`
	Truncated bool    `json:"truncated"`
}

// ImportRequest is the body of a bulk permit import
type ImportRequest struct {
	Records []RawPoint `json:"records" binding:"required"`
}

// ImportResult reports the outcome of a bulk permit import
type ImportResult struct {
	Received int `json:"received"`
	Inserted int `json:"inserted"`
	Dropped  int `json:"dropped"` // Records without usable coordinates
}
