package service

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/jengzang/permit-map-backend-go/internal/aggregation"
	"github.com/jengzang/permit-map-backend-go/internal/metrics"
	"github.com/jengzang/permit-map-backend-go/internal/models"
)

// SummarySource provides authoritative totals over the whole dataset
type SummarySource interface {
	SummaryTotals(ctx context.Context) (models.SummaryTotals, error)
}

// PointSource provides the raw point list
type PointSource interface {
	ListPoints(ctx context.Context, q models.PointQuery) (models.PointPage, error)
}

// GeographySource provides the geography feed
type GeographySource interface {
	GeographyFeatures(ctx context.Context, limit int) ([]models.GeoFeature, error)
}

// geographyRefresher is a geography source that can bypass its cache
type geographyRefresher interface {
	Refresh(ctx context.Context, limit int) ([]models.GeoFeature, error)
}

// Sources are the three upstream inputs of a map view
type Sources struct {
	Summary   SummarySource
	Points    PointSource
	Geography GeographySource
}

// Limits caps what the upstream sources return
type Limits struct {
	Points    int
	Geography int
}

// MapService handles business logic for map views
type MapService struct {
	sources Sources
	opts    aggregation.Options
	limits  Limits
}

// NewMapService creates a new map service
func NewMapService(sources Sources, opts aggregation.Options, limits Limits) *MapService {
	return &MapService{sources: sources, opts: opts, limits: limits}
}

// View fetches all sources concurrently into a fresh coordinator and renders
// one zoom level. Totals and geography failures degrade the view; a points
// failure leaves nothing to show and is returned.
func (s *MapService) View(ctx context.Context, req models.MapViewFilter) (models.MapView, error) {
	filter := req.FilterState()
	coord := aggregation.NewCoordinator(s.opts, metrics.CoordinatorHooks())
	gen := coord.BeginPointsFetch(filter)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := s.sources.Points.ListPoints(gctx, s.pointQuery(filter, req.ProjectType))
		if err != nil {
			recordPointsFailure(coord, gen, err)
			return fmt.Errorf("failed to fetch points: %w", err)
		}
		coord.PointsReady(gen, page)
		return nil
	})
	g.Go(func() error {
		totals, err := s.sources.Summary.SummaryTotals(gctx)
		if err != nil {
			recordFailure(coord, models.SourceTotals, err)
			return nil
		}
		coord.TotalsReady(totals)
		return nil
	})
	g.Go(func() error {
		features, err := s.sources.Geography.GeographyFeatures(gctx, s.limits.Geography)
		if err != nil {
			recordFailure(coord, models.SourceGeography, err)
			return nil
		}
		coord.GeographyReady(features)
		return nil
	})

	if err := g.Wait(); err != nil {
		return models.MapView{}, err
	}
	return coord.View(req.Zoom, req.Simple), nil
}

// Summary returns the authoritative totals
func (s *MapService) Summary(ctx context.Context) (models.SummaryTotals, error) {
	totals, err := s.sources.Summary.SummaryTotals(ctx)
	if err != nil {
		return models.SummaryTotals{}, fmt.Errorf("failed to get summary totals: %w", err)
	}
	return totals, nil
}

// Points returns the normalized point list for a filter
func (s *MapService) Points(ctx context.Context, req models.PointListFilter) (models.PointList, error) {
	q := s.pointQuery(models.FilterState{Categories: models.ParseCategoryList(req.Category)}, req.ProjectType)
	if req.Limit > 0 && req.Limit < q.Limit {
		q.Limit = req.Limit
	}

	page, err := s.sources.Points.ListPoints(ctx, q)
	if err != nil {
		return models.PointList{}, fmt.Errorf("failed to list points: %w", err)
	}

	normalized := aggregation.Normalize(page.Records)
	if normalized.Dropped > 0 {
		metrics.DroppedRecordsTotal.Add(float64(normalized.Dropped))
	}
	return models.PointList{
		Points:    normalized.Points,
		Dropped:   normalized.Dropped,
		Limit:     q.Limit,
		Truncated: page.Truncated,
	}, nil
}

// Geography returns the geography feed. Fresh bypasses the response cache.
func (s *MapService) Geography(ctx context.Context, req models.GeographyFilter) ([]models.GeoFeature, error) {
	limit := s.limits.Geography
	if req.Limit > 0 && (limit <= 0 || req.Limit < limit) {
		limit = req.Limit
	}

	var (
		features []models.GeoFeature
		err      error
	)
	if r, ok := s.sources.Geography.(geographyRefresher); ok && req.Fresh {
		features, err = r.Refresh(ctx, limit)
	} else {
		features, err = s.sources.Geography.GeographyFeatures(ctx, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get geography: %w", err)
	}
	return features, nil
}

func (s *MapService) pointQuery(filter models.FilterState, projectType string) models.PointQuery {
	q := models.PointQuery{ProjectType: projectType, Limit: s.limits.Points}
	if !filter.IsAll() {
		q.Categories = filter.Categories
	}
	return q
}

func recordFailure(coord *aggregation.Coordinator, source models.Source, err error) {
	log.Printf("[MapService] %s fetch failed: %v", source, err)
	metrics.FetchFailed(source)
	coord.FetchFailed(source, err)
}

// recordPointsFailure flags a points failure unless gen has been superseded
func recordPointsFailure(coord *aggregation.Coordinator, gen uint64, err error) {
	if !coord.PointsFailed(gen, err) {
		return
	}
	log.Printf("[MapService] %s fetch failed: %v", models.SourcePoints, err)
	metrics.FetchFailed(models.SourcePoints)
}
