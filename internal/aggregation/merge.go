package aggregation

import (
	"fmt"
	"log"
	"sort"

	"github.com/jengzang/permit-map-backend-go/internal/models"
	"github.com/jengzang/permit-map-backend-go/internal/spatial"
)

// ClusterMerger accumulates points per cluster id across batches.
// Merging is associative and commutative: the entities produced depend only on
// the union of the batches added, not on their order or grouping.
type ClusterMerger struct {
	groups map[int]*clusterGroup
}

// clusterGroup holds the members of one cluster.
// Points with an id are keyed so a permit seen in two batches counts once.
type clusterGroup struct {
	byID      map[string]models.Point
	anonymous []models.Point
}

// NewClusterMerger creates an empty merger
func NewClusterMerger() *ClusterMerger {
	return &ClusterMerger{groups: make(map[int]*clusterGroup)}
}

// Add merges one batch of already filtered points
func (m *ClusterMerger) Add(batch []models.Point) {
	for _, p := range batch {
		g := m.group(p.ClusterID)
		if p.ID == "" {
			g.anonymous = append(g.anonymous, p)
			continue
		}
		if existing, ok := g.byID[p.ID]; ok && !lessPoint(p.Position, existing.Position) {
			continue
		}
		g.byID[p.ID] = p
	}
}

// Merge folds another merger's members into m
func (m *ClusterMerger) Merge(other *ClusterMerger) {
	if other == nil {
		return
	}
	for _, id := range other.clusterIDs() {
		g := other.groups[id]
		batch := make([]models.Point, 0, len(g.byID)+len(g.anonymous))
		for _, p := range g.byID {
			batch = append(batch, p)
		}
		batch = append(batch, g.anonymous...)
		m.Add(batch)
	}
}

// Len returns the number of clusters seen
func (m *ClusterMerger) Len() int {
	return len(m.groups)
}

func (m *ClusterMerger) group(id int) *clusterGroup {
	g, ok := m.groups[id]
	if !ok {
		g = &clusterGroup{byID: make(map[string]models.Point)}
		m.groups[id] = g
	}
	return g
}

func (m *ClusterMerger) clusterIDs() []int {
	ids := make([]int, 0, len(m.groups))
	for id := range m.groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// members returns the cluster's points and positions in canonical order
func (g *clusterGroup) members() ([]models.Point, []spatial.Point) {
	points := make([]models.Point, 0, len(g.byID)+len(g.anonymous))
	for _, p := range g.byID {
		points = append(points, p)
	}
	points = append(points, g.anonymous...)

	sort.Slice(points, func(i, j int) bool {
		if points[i].Position != points[j].Position {
			return lessPoint(points[i].Position, points[j].Position)
		}
		return points[i].ID < points[j].ID
	})

	positions := make([]spatial.Point, len(points))
	for i, p := range points {
		positions[i] = p.Position
	}
	return points, positions
}

// CatalogEntry is the upstream metadata of one cluster
type CatalogEntry struct {
	models.ClusterInfo
	TotalPermits int // Cluster total reported by the geography feed, 0 if unknown
}

// Catalog maps cluster ids to their upstream metadata
type Catalog map[int]CatalogEntry

// CatalogFromFeatures builds a catalog from the geography feed.
// Every feature of a cluster carries the same total; the largest one is kept.
func CatalogFromFeatures(features []models.GeoFeature) Catalog {
	catalog := make(Catalog)
	for _, f := range features {
		entry, ok := catalog[f.ClusterID]
		if !ok {
			entry = CatalogEntry{ClusterInfo: models.ClusterInfo{ID: f.ClusterID}}
		}
		if entry.Name == "" {
			entry.Name = f.ClusterName
		}
		if entry.Category == "" && f.Category != "" {
			entry.Category = f.Category
		}
		if f.TotalPermits > entry.TotalPermits {
			entry.TotalPermits = f.TotalPermits
		}
		catalog[f.ClusterID] = entry
	}
	return catalog
}

// DisplayName returns the catalog name, or a generic name derived from the id
func (c Catalog) DisplayName(id int) string {
	if info, ok := c[id]; ok && info.Name != "" {
		return info.Name
	}
	if id == models.UnclusteredID {
		return "Unclustered"
	}
	return fmt.Sprintf("Cluster %d", id)
}

// EntityInputs are the non-point inputs of cluster entity construction
type EntityInputs struct {
	Catalog    Catalog
	Totals     *models.SummaryTotals   // nil until the totals source resolves
	Boundaries map[int][]spatial.Point // Convex hulls from the geography feed
}

// Entities builds one display entity per cluster, ordered by cluster id.
// Member counts use the authoritative total when one is known.
func (m *ClusterMerger) Entities(in EntityInputs) []models.ClusterDisplayEntity {
	ids := m.clusterIDs()
	entities := make([]models.ClusterDisplayEntity, 0, len(ids))

	for _, id := range ids {
		members, positions := m.groups[id].members()
		e := models.ClusterDisplayEntity{
			ClusterID:    id,
			Centroid:     spatial.Centroid(positions),
			PointCount:   len(members),
			Category:     clusterCategory(in.Catalog, id, members),
			DisplayName:  in.Catalog.DisplayName(id),
			SpreadMeters: spatial.RadiusOfGyration(positions),
		}
		if hull, ok := in.Boundaries[id]; ok {
			e.Boundary = hull
			e.AreaSqMeters = spatial.PolygonArea(hull)
			e.PerimeterM = spatial.PerimeterMeters(hull)
		}
		entities = append(entities, e)
	}

	applyCounts(entities, in.Totals, in.Catalog)
	return entities
}

// applyCounts sets MemberCount from the most authoritative count known.
// Precedence: the summary's cluster total, then the cluster total carried by
// the geography feed, then a category total when exactly one cluster carries
// that category (otherwise it would be counted twice), then the loaded points.
// A summary total that disagrees with the feed is logged and still wins.
func applyCounts(entities []models.ClusterDisplayEntity, totals *models.SummaryTotals, catalog Catalog) {
	perCategory := make(map[models.Category]int)
	for _, e := range entities {
		perCategory[e.Category]++
	}

	for i := range entities {
		e := &entities[i]
		e.MemberCount, e.CountSource = e.PointCount, models.CountFromPoints
		feedTotal := catalog[e.ClusterID].TotalPermits

		if totals != nil {
			if n, ok := totals.ByCluster[e.ClusterID]; ok {
				if feedTotal > 0 && feedTotal != n {
					log.Printf("[Aggregation] Cluster %d total %d disagrees with geography feed total %d", e.ClusterID, n, feedTotal)
				}
				e.MemberCount, e.CountSource = n, models.CountFromTotals
				continue
			}
		}
		if feedTotal > 0 {
			e.MemberCount, e.CountSource = feedTotal, models.CountFromFeed
			continue
		}
		if totals == nil || e.Category.IsSentinel() || perCategory[e.Category] != 1 {
			continue
		}
		if n, ok := totals.ByCategory[e.Category]; ok {
			e.MemberCount, e.CountSource = n, models.CountFromTotals
		}
	}
}

// clusterCategory is stable per cluster id: the catalog category when known,
// else the members' plurality category with ties broken by the fixed category order
func clusterCategory(catalog Catalog, id int, members []models.Point) models.Category {
	if info, ok := catalog[id]; ok && info.Category != "" && info.Category != models.CategoryAll {
		return info.Category
	}

	counts := make(map[models.Category]int)
	for _, p := range members {
		counts[p.Category]++
	}

	best := models.CategoryUncategorized
	bestCount := 0
	for c, n := range counts {
		if c.IsSentinel() {
			continue
		}
		if n > bestCount || (n == bestCount && c.Rank() < best.Rank()) {
			best, bestCount = c, n
		}
	}
	return best
}

// lessPoint orders positions by latitude, then longitude
func lessPoint(a, b spatial.Point) bool {
	if a.Lat != b.Lat {
		return a.Lat < b.Lat
	}
	return a.Lon < b.Lon
}
