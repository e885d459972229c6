package models

import (
	"fmt"

	"github.com/jengzang/permit-map-backend-go/internal/spatial"
)

// CellKey identifies a grid cell: floor(lat/cellSize), floor(lng/cellSize)
type CellKey struct {
	Row int64 `json:"row"`
	Col int64 `json:"col"`
}

// String formats the key as "row_col"
func (k CellKey) String() string {
	return fmt.Sprintf("%d_%d", k.Row, k.Col)
}

// GridBucket represents one spatial cell at medium zoom
type GridBucket struct {
	CellKey          CellKey       `json:"cell_key"`
	CellSize         float64       `json:"cell_size"` // Degrees
	Centroid         spatial.Point `json:"centroid"`
	MemberCount      int           `json:"member_count"`
	DominantCategory Category      `json:"dominant_category"`
	RadiusHint       float64       `json:"radius_hint"` // Pixels, grows with sqrt(member_count)
	ClusterIDs       []int         `json:"cluster_ids"` // Distinct, ascending
	ZipCodes         []string      `json:"zip_codes"`   // Distinct, ascending
	Highlighted      bool          `json:"highlighted"`
}
