package aggregation

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/jengzang/permit-map-backend-go/internal/models"
	"github.com/jengzang/permit-map-backend-go/internal/spatial"
)

// NormalizeResult holds validated points and the number of records dropped
type NormalizeResult struct {
	Points  []models.Point `json:"points"`
	Dropped int            `json:"dropped"`
}

// Normalize converts raw records into points.
// Records whose latitude or longitude is missing, non-numeric or non-finite
// are dropped and counted; no error is returned for them.
func Normalize(records []models.RawPoint) NormalizeResult {
	result := NormalizeResult{Points: make([]models.Point, 0, len(records))}

	for _, r := range records {
		lat, okLat := toFloat(r.Latitude)
		lon, okLon := toFloat(r.Longitude)
		pos := spatial.Point{Lat: lat, Lon: lon}
		if !okLat || !okLon || !pos.IsFinite() {
			result.Dropped++
			continue
		}

		p := models.Point{
			ID:           strings.TrimSpace(r.ID),
			PermitNumber: strings.TrimSpace(r.PermitNumber),
			Position:     pos,
			Category:     models.ParseCategory(r.Category),
			ClusterID:    models.UnclusteredID,
			ZipCode:      normalizeZip(r.ZipCode),
			ProjectType:  r.ProjectType,
			Description:  r.Description,
		}
		if p.Category == models.CategoryAll {
			p.Category = models.CategoryUncategorized
		}
		if r.ClusterID != nil {
			p.ClusterID = *r.ClusterID
		}
		if r.Value != nil && !math.IsNaN(*r.Value) && !math.IsInf(*r.Value, 0) {
			p.Value = *r.Value
		}
		if r.Year != nil {
			p.Year = *r.Year
		}

		result.Points = append(result.Points, p)
	}

	return result
}

// toFloat accepts the numeric shapes upstream sources produce
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	case *float64:
		if n == nil {
			return 0, false
		}
		return *n, true
	default:
		return 0, false
	}
}

// normalizeZip keeps the 5-digit ZIP prefix
func normalizeZip(zip string) string {
	zip = strings.TrimSpace(zip)
	if len(zip) > 5 {
		return zip[:5]
	}
	return zip
}
