package aggregation

import (
	"log"
	"sync"
	"time"

	"github.com/jengzang/permit-map-backend-go/internal/models"
)

// Hooks observe coordinator events. Any hook may be nil.
type Hooks struct {
	OnRebuild func(state models.RebuildState, elapsed time.Duration)
	OnStale   func(got, current uint64)
	OnDropped func(n int)
}

// Coordinator owns the aggregation state of one map view.
//
// Points and totals arrive independently and in either order; each arrival
// writes one slot under the lock and triggers a full rebuild from every
// retained slot. The state converges on READY regardless of arrival order.
// A points response is accepted only for the current request generation.
type Coordinator struct {
	mu    sync.Mutex
	opts  Options
	hooks Hooks

	state      models.RebuildState
	filter     models.FilterState
	generation uint64 // Latest points request
	loadedGen  uint64 // Generation of the retained batches

	// Input slots
	batches         [][]models.Point
	dropped         int
	sourceTruncated bool
	totals          *models.SummaryTotals
	features        []models.GeoFeature
	errors          map[models.Source]string

	snapshot Snapshot
	rebuilds int
}

// NewCoordinator creates a coordinator in the EMPTY state
func NewCoordinator(opts Options, hooks Hooks) *Coordinator {
	c := &Coordinator{
		opts:   opts,
		hooks:  hooks,
		state:  models.StateEmpty,
		errors: make(map[models.Source]string),
	}
	c.snapshot = Snapshot{Points: []models.Point{}, Clusters: []models.ClusterDisplayEntity{}}
	return c
}

// State returns the current rebuild state
func (c *Coordinator) State() models.RebuildState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Filter returns the active filter
func (c *Coordinator) Filter() models.FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Generation returns the latest points request generation
func (c *Coordinator) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Rebuilds returns how many full rebuilds have run
func (c *Coordinator) Rebuilds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rebuilds
}

// BeginPointsFetch records a new filter and returns the generation the caller
// must pass back to PointsReady. Responses for older generations are discarded.
// The retained points are re-aggregated under the new filter right away.
func (c *Coordinator) BeginPointsFetch(filter models.FilterState) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.filter = filter
	c.rebuild()
	return c.generation
}

// SetHighlight changes only the highlight predicate. Aggregates are unaffected,
// so no refetch is needed.
func (c *Coordinator) SetHighlight(zip string, clusterID *int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.filter.HighlightZip = zip
	c.filter.HighlightClusterID = clusterID
	c.snapshot.Filter = c.filter
}

// PointsReady delivers one page of the points response for generation gen.
// The first page of a generation replaces the retained batches; later pages of
// the same generation are appended. It returns false if the page was stale.
func (c *Coordinator) PointsReady(gen uint64, page models.PointPage) bool {
	normalized := Normalize(page.Records)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		log.Printf("[Coordinator] Discarding stale points response (generation=%d, current=%d)", gen, c.generation)
		if c.hooks.OnStale != nil {
			c.hooks.OnStale(gen, c.generation)
		}
		return false
	}

	if gen != c.loadedGen || c.batches == nil {
		c.batches = nil
		c.dropped = 0
		c.sourceTruncated = false
		c.loadedGen = gen
	}
	c.batches = append(c.batches, normalized.Points)
	c.dropped += normalized.Dropped
	c.sourceTruncated = c.sourceTruncated || page.Truncated
	delete(c.errors, models.SourcePoints)

	if normalized.Dropped > 0 && c.hooks.OnDropped != nil {
		c.hooks.OnDropped(normalized.Dropped)
	}

	switch c.state {
	case models.StateEmpty:
		c.state = models.StatePointsOnly
	case models.StateTotalsOnly:
		c.state = models.StateReady
	}

	c.rebuild()
	return true
}

// TotalsReady delivers the authoritative per-category and per-cluster totals
func (c *Coordinator) TotalsReady(totals models.SummaryTotals) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totals = &totals
	delete(c.errors, models.SourceTotals)

	switch c.state {
	case models.StateEmpty:
		c.state = models.StateTotalsOnly
	case models.StatePointsOnly:
		c.state = models.StateReady
	}

	c.rebuild()
}

// GeographyReady delivers the geography feed used for names and boundaries.
// It does not change the rebuild state.
func (c *Coordinator) GeographyReady(features []models.GeoFeature) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.features = features
	delete(c.errors, models.SourceGeography)
	c.rebuild()
}

// PointsFailed records a failed points fetch for generation gen. A failure of
// an older generation is stale and discarded like a stale response. It returns
// false if the failure was stale.
func (c *Coordinator) PointsFailed(gen uint64, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		log.Printf("[Coordinator] Discarding stale points failure (generation=%d, current=%d): %v", gen, c.generation, err)
		if c.hooks.OnStale != nil {
			c.hooks.OnStale(gen, c.generation)
		}
		return false
	}
	if err != nil {
		c.errors[models.SourcePoints] = err.Error()
		log.Printf("[Coordinator] points fetch failed: %v", err)
	}
	return true
}

// FetchFailed records a totals or geography fetch failure. The state and the last rendered
// aggregates are kept; the error is surfaced on the next view.
func (c *Coordinator) FetchFailed(source models.Source, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		return
	}
	c.errors[source] = err.Error()
	log.Printf("[Coordinator] %s fetch failed: %v", source, err)
}

// View renders the current aggregates for a zoom level
func (c *Coordinator) View(zoom float64, simple bool) models.MapView {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := Render(c.snapshot, zoom, simple, c.opts)
	view.State = c.state
	view.Generation = c.generation
	view.Dropped = c.dropped
	view.SourceTruncated = c.sourceTruncated
	if len(c.errors) > 0 {
		view.Errors = make(map[models.Source]string, len(c.errors))
		for k, v := range c.errors {
			view.Errors[k] = v
		}
	}
	return view
}

// rebuild recomputes the snapshot from every slot. Callers hold c.mu.
func (c *Coordinator) rebuild() {
	start := time.Now()

	in := EntityInputs{
		Catalog:    CatalogFromFeatures(c.features),
		Totals:     c.totals,
		Boundaries: BuildBoundaries(c.features, c.opts),
	}
	c.snapshot = Aggregate(c.batches, c.filter, in)
	c.rebuilds++

	if c.hooks.OnRebuild != nil {
		c.hooks.OnRebuild(c.state, time.Since(start))
	}
}
