package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/jengzang/permit-map-backend-go/internal/aggregation"
	"github.com/jengzang/permit-map-backend-go/internal/metrics"
	"github.com/jengzang/permit-map-backend-go/internal/models"
)

// ErrInvalidCluster is returned for cluster updates that cannot be applied
var ErrInvalidCluster = errors.New("invalid cluster")

// PermitStore persists permits and cluster metadata
type PermitStore interface {
	InsertPermits(ctx context.Context, points []models.Point) (int, error)
	UpsertCluster(ctx context.Context, info models.ClusterInfo) error
	GetCluster(ctx context.Context, id int) (*models.ClusterInfo, error)
	ListClusters(ctx context.Context) ([]models.ClusterInfo, error)
}

// Invalidator drops cached derived data after a write
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// PermitService handles permit imports and cluster metadata
type PermitService struct {
	store PermitStore
	cache Invalidator
}

// NewPermitService creates a new permit service. cache may be nil.
func NewPermitService(store PermitStore, cache Invalidator) *PermitService {
	return &PermitService{store: store, cache: cache}
}

// Import normalizes raw records and stores the valid ones.
// Records without usable coordinates are counted, not rejected.
func (s *PermitService) Import(ctx context.Context, records []models.RawPoint) (models.ImportResult, error) {
	normalized := aggregation.Normalize(records)
	for i := range normalized.Points {
		if normalized.Points[i].ID == "" {
			normalized.Points[i].ID = uuid.NewString()
		}
	}
	if normalized.Dropped > 0 {
		metrics.DroppedRecordsTotal.Add(float64(normalized.Dropped))
	}

	inserted, err := s.store.InsertPermits(ctx, normalized.Points)
	if err != nil {
		return models.ImportResult{}, fmt.Errorf("failed to import permits: %w", err)
	}
	s.invalidate(ctx)

	log.Printf("[PermitService] Imported %d permits (%d dropped)", inserted, normalized.Dropped)
	return models.ImportResult{
		Received: len(records),
		Inserted: inserted,
		Dropped:  normalized.Dropped,
	}, nil
}

// UpdateCluster sets a cluster's display name and category
func (s *PermitService) UpdateCluster(ctx context.Context, id int, req models.ClusterUpdateRequest) (*models.ClusterInfo, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidCluster)
	}

	info := models.ClusterInfo{ID: id, Name: name}
	if strings.TrimSpace(req.Category) != "" {
		info.Category = models.ParseCategory(req.Category)
		if info.Category == models.CategoryAll {
			return nil, fmt.Errorf("%w: category %q cannot be assigned", ErrInvalidCluster, req.Category)
		}
	}

	if err := s.store.UpsertCluster(ctx, info); err != nil {
		return nil, fmt.Errorf("failed to update cluster: %w", err)
	}
	s.invalidate(ctx)

	return s.store.GetCluster(ctx, id)
}

// ListClusters returns all cluster metadata
func (s *PermitService) ListClusters(ctx context.Context) ([]models.ClusterInfo, error) {
	clusters, err := s.store.ListClusters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}
	return clusters, nil
}

func (s *PermitService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("[PermitService] Failed to invalidate geography cache: %v", err)
	}
}
