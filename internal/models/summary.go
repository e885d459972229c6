package models

import "github.com/jengzang/permit-map-backend-go/internal/spatial"

// SummaryTotals holds authoritative permit counts across the whole dataset
type SummaryTotals struct {
	ByCategory map[Category]int `json:"by_category"`
	ByCluster  map[int]int      `json:"by_cluster"`
	Total      int              `json:"total"`
}

// GeoFeature is one feature of the geography feed
type GeoFeature struct {
	Position     spatial.Point `json:"position"`
	ZipCode      string        `json:"zip_code,omitempty"`
	ClusterID    int           `json:"cluster_id"`
	ClusterName  string        `json:"cluster_name"`
	Category     Category      `json:"category,omitempty"`
	TotalPermits int           `json:"total_permits"` // Cluster total, aggregated upstream
}

// FeatureCollection is the GeoJSON form of the geography feed
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a GeoJSON point feature
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// Geometry is a GeoJSON point geometry
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [lng, lat]
}

// ToFeatureCollection converts geography features to GeoJSON
func ToFeatureCollection(features []GeoFeature) FeatureCollection {
	out := FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]Feature, 0, len(features)),
	}
	for _, f := range features {
		out.Features = append(out.Features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{f.Position.Lon, f.Position.Lat},
			},
			Properties: map[string]interface{}{
				"zip_code":      f.ZipCode,
				"cluster_id":    f.ClusterID,
				"cluster_name":  f.ClusterName,
				"category":      f.Category,
				"total_permits": f.TotalPermits,
			},
		})
	}
	return out
}
