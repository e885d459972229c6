package service

import (
	"context"
	"sync"

	"github.com/jengzang/permit-map-backend-go/internal/models"
	"github.com/jengzang/permit-map-backend-go/internal/spatial"
)

type fakeSources struct {
	mu         sync.Mutex
	records    []models.RawPoint
	totals     models.SummaryTotals
	features   []models.GeoFeature
	pointsErr  error
	totalsErr  error
	geoErr     error
	queries    []models.PointQuery
	refreshes  int
	pointsGate chan struct{} // When set, ListPoints waits for it or ctx

	// When set, unfiltered ListPoints calls wait for unfilteredGate and fail with unfilteredErr
	unfilteredGate chan struct{}
	unfilteredErr  error
}

func (f *fakeSources) sources() Sources {
	return Sources{Summary: f, Points: f, Geography: f}
}

func (f *fakeSources) ListPoints(ctx context.Context, q models.PointQuery) (models.PointPage, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	gate := f.pointsGate
	unfilteredGate := f.unfilteredGate
	f.mu.Unlock()

	if unfilteredGate != nil && len(q.Categories) == 0 {
		<-unfilteredGate
		return models.PointPage{}, f.unfilteredErr
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.PointPage{}, ctx.Err()
		}
	}
	if f.pointsErr != nil {
		return models.PointPage{}, f.pointsErr
	}

	out := make([]models.RawPoint, 0, len(f.records))
	for _, r := range f.records {
		if len(q.Categories) > 0 && !containsCategory(q.Categories, models.ParseCategory(r.Category)) {
			continue
		}
		out = append(out, r)
	}
	page := models.PointPage{Records: out, Limit: q.Limit}
	if q.Limit > 0 && len(out) > q.Limit {
		page.Records = out[:q.Limit]
		page.Truncated = true
	}
	return page, nil
}

func (f *fakeSources) SummaryTotals(ctx context.Context) (models.SummaryTotals, error) {
	return f.totals, f.totalsErr
}

func (f *fakeSources) GeographyFeatures(ctx context.Context, limit int) ([]models.GeoFeature, error) {
	return f.features, f.geoErr
}

func (f *fakeSources) lastQuery() models.PointQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

type refreshingSources struct {
	*fakeSources
}

func (r refreshingSources) Refresh(ctx context.Context, limit int) ([]models.GeoFeature, error) {
	r.mu.Lock()
	r.refreshes++
	r.mu.Unlock()
	return r.features, r.geoErr
}

func containsCategory(list []models.Category, c models.Category) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}

func record(id string, lat, lon interface{}, category string, cluster int) models.RawPoint {
	c := cluster
	return models.RawPoint{ID: id, Latitude: lat, Longitude: lon, Category: category, ClusterID: &c, ZipCode: "78701"}
}

func solarDataset() *fakeSources {
	return &fakeSources{
		records: []models.RawPoint{
			record("a", 30.0, -97.0, "solar", 2),
			record("b", 30.2, -97.2, "solar", 2),
			record("c", 30.4, -97.4, "solar", 2),
			record("d", 30.1, -97.9, "battery", 3),
			record("e", nil, -97.9, "battery", 3),
		},
		totals: models.SummaryTotals{
			ByCategory: map[models.Category]int{models.CategorySolar: 4200, models.CategoryBattery: 800},
			ByCluster:  map[int]int{2: 4200, 3: 800},
			Total:      5000,
		},
		features: []models.GeoFeature{
			{Position: spatial.Point{Lat: 30.0, Lon: -97.0}, ClusterID: 2, ClusterName: "Rooftop Solar", TotalPermits: 4200},
			{Position: spatial.Point{Lat: 30.1, Lon: -97.9}, ClusterID: 3, ClusterName: "Battery Belt", TotalPermits: 800},
		},
	}
}
