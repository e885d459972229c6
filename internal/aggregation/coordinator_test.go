package aggregation

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jengzang/permit-map-backend-go/internal/models"
)

func solarPage(n int, truncated bool) models.PointPage {
	records := make([]models.RawPoint, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, raw(string(rune('a'+i)), 30.0+float64(i)*0.1, -97.0-float64(i)*0.1, "solar", 2))
	}
	return models.PointPage{Records: records, Limit: n, Truncated: truncated}
}

func clusterCount(t *testing.T, view models.MapView, id int) models.ClusterDisplayEntity {
	t.Helper()
	for _, c := range view.Clusters {
		if c.ClusterID == id {
			return c
		}
	}
	t.Fatalf("cluster %d not in view: %+v", id, view.Clusters)
	return models.ClusterDisplayEntity{}
}

func TestCoordinator_PointsThenTotals(t *testing.T) {
	c := NewCoordinator(DefaultOptions(), Hooks{})
	gen := c.BeginPointsFetch(models.FilterState{})

	if !c.PointsReady(gen, solarPage(3, true)) {
		t.Fatal("expected points for the current generation to be accepted")
	}
	if c.State() != models.StatePointsOnly {
		t.Fatalf("expected POINTS_ONLY, got %s", c.State())
	}

	before := clusterCount(t, c.View(8, false), 2)
	if before.MemberCount != 3 || before.CountSource != models.CountFromPoints {
		t.Fatalf("expected point-derived count 3, got %d from %s", before.MemberCount, before.CountSource)
	}

	c.TotalsReady(models.SummaryTotals{ByCluster: map[int]int{2: 4200}})
	if c.State() != models.StateReady {
		t.Fatalf("expected READY, got %s", c.State())
	}

	after := clusterCount(t, c.View(8, false), 2)
	if after.MemberCount != 4200 || after.CountSource != models.CountFromTotals {
		t.Fatalf("expected authoritative count 4200, got %d from %s", after.MemberCount, after.CountSource)
	}
	if after.PointCount != 3 {
		t.Fatalf("expected point count to stay 3, got %d", after.PointCount)
	}
}

func TestCoordinator_TotalsThenPoints(t *testing.T) {
	c := NewCoordinator(DefaultOptions(), Hooks{})
	c.TotalsReady(models.SummaryTotals{ByCluster: map[int]int{2: 4200}})
	if c.State() != models.StateTotalsOnly {
		t.Fatalf("expected TOTALS_ONLY, got %s", c.State())
	}
	if view := c.View(8, false); len(view.Clusters) != 0 {
		t.Fatalf("expected no clusters before points arrive, got %+v", view.Clusters)
	}

	gen := c.BeginPointsFetch(models.FilterState{})
	c.PointsReady(gen, solarPage(3, false))
	if c.State() != models.StateReady {
		t.Fatalf("expected READY, got %s", c.State())
	}
	if e := clusterCount(t, c.View(8, false), 2); e.MemberCount != 4200 {
		t.Fatalf("expected authoritative count 4200, got %d", e.MemberCount)
	}
}

func TestCoordinator_ArrivalOrderConverges(t *testing.T) {
	totals := models.SummaryTotals{ByCluster: map[int]int{2: 4200}}

	a := NewCoordinator(DefaultOptions(), Hooks{})
	a.PointsReady(a.BeginPointsFetch(models.FilterState{}), solarPage(4, false))
	a.TotalsReady(totals)

	b := NewCoordinator(DefaultOptions(), Hooks{})
	gen := b.BeginPointsFetch(models.FilterState{})
	b.TotalsReady(totals)
	b.PointsReady(gen, solarPage(4, false))

	va, vb := a.View(8, false), b.View(8, false)
	if va.State != vb.State || len(va.Clusters) != len(vb.Clusters) {
		t.Fatalf("expected identical views, got %+v and %+v", va, vb)
	}
	ca, cb := va.Clusters[0], vb.Clusters[0]
	if ca.Centroid != cb.Centroid || ca.MemberCount != cb.MemberCount || ca.CountSource != cb.CountSource || ca.Category != cb.Category {
		t.Fatalf("expected identical cluster entities, got %+v and %+v", ca, cb)
	}
}

func TestCoordinator_StaleResponseDiscarded(t *testing.T) {
	var stale int
	c := NewCoordinator(DefaultOptions(), Hooks{OnStale: func(got, current uint64) { stale++ }})

	oldGen := c.BeginPointsFetch(models.FilterState{})
	newGen := c.BeginPointsFetch(models.FilterState{Categories: []models.Category{models.CategorySolar}})

	if !c.PointsReady(newGen, solarPage(2, false)) {
		t.Fatal("expected current generation to be accepted")
	}
	if c.PointsReady(oldGen, solarPage(5, false)) {
		t.Fatal("expected stale generation to be discarded")
	}
	if stale != 1 {
		t.Fatalf("expected stale hook to fire once, got %d", stale)
	}

	view := c.View(16, false)
	if view.Total != 2 {
		t.Fatalf("expected newer result with 2 points to stay rendered, got %d", view.Total)
	}
	if view.Generation != newGen {
		t.Fatalf("expected generation %d, got %d", newGen, view.Generation)
	}
}

func TestCoordinator_StaleFailureDiscarded(t *testing.T) {
	stale := 0
	c := NewCoordinator(DefaultOptions(), Hooks{OnStale: func(got, current uint64) { stale++ }})

	old := c.BeginPointsFetch(models.FilterState{})
	current := c.BeginPointsFetch(models.FilterState{Categories: []models.Category{models.CategorySolar}})
	c.PointsReady(current, solarPage(2, false))

	if c.PointsFailed(old, errors.New("timeout")) {
		t.Fatal("expected failure of a superseded generation to be discarded")
	}
	if stale != 1 {
		t.Fatalf("expected 1 stale event, got %d", stale)
	}
	view := c.View(8, false)
	if len(view.Errors) != 0 {
		t.Fatalf("expected no error flags, got %v", view.Errors)
	}
	if c.State() != models.StatePointsOnly {
		t.Fatalf("expected POINTS_ONLY, got %s", c.State())
	}

	if !c.PointsFailed(current, errors.New("timeout")) {
		t.Fatal("expected failure of the current generation to be recorded")
	}
	if c.View(8, false).Errors[models.SourcePoints] != "timeout" {
		t.Fatalf("expected points error flag for the current generation")
	}
}

func TestCoordinator_PagesAccumulateWithinGeneration(t *testing.T) {
	c := NewCoordinator(DefaultOptions(), Hooks{})
	gen := c.BeginPointsFetch(models.FilterState{})

	c.PointsReady(gen, models.PointPage{Records: []models.RawPoint{raw("a", 30.0, -97.0, "solar", 1)}})
	c.PointsReady(gen, models.PointPage{Records: []models.RawPoint{raw("b", 30.2, -97.2, "solar", 1), raw("c", "bad", -97.2, "solar", 1)}})

	view := c.View(16, false)
	if view.Total != 2 || view.Dropped != 1 {
		t.Fatalf("expected 2 points and 1 dropped across pages, got %d and %d", view.Total, view.Dropped)
	}

	// A new generation replaces the retained batches
	next := c.BeginPointsFetch(models.FilterState{})
	c.PointsReady(next, models.PointPage{Records: []models.RawPoint{raw("z", 30.0, -97.0, "solar", 1)}})
	view = c.View(16, false)
	if view.Total != 1 || view.Dropped != 0 {
		t.Fatalf("expected refetch to replace points, got %d points and %d dropped", view.Total, view.Dropped)
	}
}

func TestCoordinator_FetchFailureKeepsLastGoodState(t *testing.T) {
	c := NewCoordinator(DefaultOptions(), Hooks{})
	gen := c.BeginPointsFetch(models.FilterState{})
	c.PointsReady(gen, solarPage(3, false))
	c.TotalsReady(models.SummaryTotals{ByCluster: map[int]int{2: 10}})

	c.PointsFailed(gen, errors.New("upstream timeout"))

	view := c.View(8, false)
	if view.State != models.StateReady {
		t.Fatalf("expected state to stay READY, got %s", view.State)
	}
	if len(view.Clusters) != 1 || view.Clusters[0].MemberCount != 10 {
		t.Fatalf("expected rendered aggregates to be kept, got %+v", view.Clusters)
	}
	if view.Errors[models.SourcePoints] != "upstream timeout" {
		t.Fatalf("expected points error flag, got %v", view.Errors)
	}

	// A later success clears the flag
	c.PointsReady(c.BeginPointsFetch(models.FilterState{}), solarPage(3, false))
	if view := c.View(8, false); view.Errors != nil {
		t.Fatalf("expected errors to clear, got %v", view.Errors)
	}
}

func TestCoordinator_FilterChangeRebuildsRetainedPoints(t *testing.T) {
	c := NewCoordinator(DefaultOptions(), Hooks{})
	gen := c.BeginPointsFetch(models.FilterState{})
	c.PointsReady(gen, models.PointPage{Records: []models.RawPoint{
		raw("a", 30.0, -97.0, "solar", 1),
		raw("b", 30.1, -97.1, "battery", 2),
	}})

	c.BeginPointsFetch(models.FilterState{Categories: []models.Category{models.CategoryBattery}})
	view := c.View(8, false)
	if len(view.Clusters) != 1 || view.Clusters[0].ClusterID != 2 {
		t.Fatalf("expected only the battery cluster, got %+v", view.Clusters)
	}
}

func TestCoordinator_GeographyNamesAndBoundaries(t *testing.T) {
	c := NewCoordinator(DefaultOptions(), Hooks{})
	gen := c.BeginPointsFetch(models.FilterState{})
	c.PointsReady(gen, solarPage(3, false))

	c.GeographyReady([]models.GeoFeature{
		{ClusterID: 2, ClusterName: "Rooftop Solar", Position: spatialPoint(30.0, -97.0), TotalPermits: 900},
		{ClusterID: 2, ClusterName: "Rooftop Solar", Position: spatialPoint(30.5, -97.2), TotalPermits: 900},
		{ClusterID: 2, ClusterName: "Rooftop Solar", Position: spatialPoint(30.2, -97.9), TotalPermits: 900},
	})

	e := clusterCount(t, c.View(8, false), 2)
	if e.DisplayName != "Rooftop Solar" {
		t.Errorf("expected feed name, got %q", e.DisplayName)
	}
	if len(e.Boundary) != 3 {
		t.Errorf("expected triangle boundary, got %v", e.Boundary)
	}
	if e.MemberCount != 900 || e.CountSource != models.CountFromFeed {
		t.Errorf("expected feed total 900 before the summary arrives, got %d from %s", e.MemberCount, e.CountSource)
	}
	if c.State() != models.StatePointsOnly {
		t.Errorf("expected geography not to change the state, got %s", c.State())
	}
}

func TestCoordinator_HighlightWithoutRefetch(t *testing.T) {
	c := NewCoordinator(DefaultOptions(), Hooks{})
	gen := c.BeginPointsFetch(models.FilterState{})
	c.PointsReady(gen, solarPage(3, false))
	rebuilds := c.Rebuilds()

	c.SetHighlight("", intPtr(2))
	view := c.View(8, false)
	if view.Highlighted != 1 || !view.Clusters[0].Highlighted {
		t.Fatalf("expected cluster 2 highlighted, got %+v", view.Clusters)
	}
	if c.Rebuilds() != rebuilds {
		t.Fatalf("expected highlight not to trigger a rebuild")
	}
	if c.Generation() != gen {
		t.Fatalf("expected highlight not to bump the generation")
	}
}

func TestCoordinator_ConcurrentArrivals(t *testing.T) {
	var mu sync.Mutex
	var rebuilds int
	c := NewCoordinator(DefaultOptions(), Hooks{OnRebuild: func(models.RebuildState, time.Duration) {
		mu.Lock()
		rebuilds++
		mu.Unlock()
	}})
	gen := c.BeginPointsFetch(models.FilterState{})

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); c.PointsReady(gen, solarPage(5, false)) }()
	go func() { defer wg.Done(); c.TotalsReady(models.SummaryTotals{ByCluster: map[int]int{2: 77}}) }()
	go func() { defer wg.Done(); _ = c.View(12, false) }()
	wg.Wait()

	if c.State() != models.StateReady {
		t.Fatalf("expected READY after both inputs, got %s", c.State())
	}
	if e := clusterCount(t, c.View(8, false), 2); e.MemberCount != 77 {
		t.Fatalf("expected authoritative count 77, got %d", e.MemberCount)
	}
	if rebuilds != c.Rebuilds() {
		t.Fatalf("expected hook count %d to match rebuilds %d", rebuilds, c.Rebuilds())
	}
}

func TestCoordinator_EmptyView(t *testing.T) {
	c := NewCoordinator(DefaultOptions(), Hooks{})
	view := c.View(12, false)
	if view.State != models.StateEmpty {
		t.Fatalf("expected EMPTY, got %s", view.State)
	}
	if view.Buckets == nil || len(view.Buckets) != 0 {
		t.Fatalf("expected empty buckets, got %#v", view.Buckets)
	}
}
