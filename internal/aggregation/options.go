package aggregation

import (
	"errors"
	"fmt"
	"sort"
)

// GridStep sets the grid cell size (degrees) used from MinZoom upward
type GridStep struct {
	MinZoom  float64
	CellSize float64
}

// Options holds the tuning parameters of the level-of-detail pipeline
type Options struct {
	ClusterZoom    float64 // Zoom at or below which clusters are rendered
	IndividualZoom float64 // Zoom at or above which individual points are rendered
	MaxMarkers     int     // Cap on individual markers, applied by truncation

	GridSteps []GridStep // Ascending MinZoom, non-increasing CellSize

	// Bucket radius hint: clamp(RadiusBase + RadiusScale*sqrt(count), RadiusMin, RadiusMax)
	RadiusBase  float64
	RadiusScale float64
	RadiusMin   float64
	RadiusMax   float64

	HullStride       int // Keep every n-th boundary point before hulling
	HullSubsampleMin int // Subsample only boundary sets larger than this
}

// DefaultOptions returns the options used by the permit map
func DefaultOptions() Options {
	return Options{
		ClusterZoom:    10,
		IndividualZoom: 14,
		MaxMarkers:     500,
		GridSteps: []GridStep{
			{MinZoom: 0, CellSize: 0.05},
			{MinZoom: 11, CellSize: 0.02},
			{MinZoom: 12, CellSize: 0.01},
			{MinZoom: 13, CellSize: 0.005},
		},
		RadiusBase:       6,
		RadiusScale:      1.5,
		RadiusMin:        8,
		RadiusMax:        40,
		HullStride:       4,
		HullSubsampleMin: 200,
	}
}

// Validate checks the options for internal consistency
func (o Options) Validate() error {
	if o.ClusterZoom >= o.IndividualZoom {
		return fmt.Errorf("cluster zoom %.1f must be below individual zoom %.1f", o.ClusterZoom, o.IndividualZoom)
	}
	if o.MaxMarkers <= 0 {
		return errors.New("max markers must be positive")
	}
	if len(o.GridSteps) == 0 {
		return errors.New("at least one grid step is required")
	}
	for i, step := range o.GridSteps {
		if step.CellSize <= 0 {
			return fmt.Errorf("grid step %d: cell size must be positive", i)
		}
		if i == 0 {
			continue
		}
		prev := o.GridSteps[i-1]
		if step.MinZoom <= prev.MinZoom {
			return fmt.Errorf("grid step %d: zoom %.1f not above previous %.1f", i, step.MinZoom, prev.MinZoom)
		}
		if step.CellSize > prev.CellSize {
			return fmt.Errorf("grid step %d: cell size %.4f grows past %.4f as zoom increases", i, step.CellSize, prev.CellSize)
		}
	}
	if o.RadiusMin > o.RadiusMax {
		return fmt.Errorf("radius min %.1f above max %.1f", o.RadiusMin, o.RadiusMax)
	}
	if o.HullStride < 1 {
		return errors.New("hull stride must be at least 1")
	}
	return nil
}

// SortGridSteps orders steps by ascending MinZoom
func SortGridSteps(steps []GridStep) {
	sort.Slice(steps, func(i, j int) bool { return steps[i].MinZoom < steps[j].MinZoom })
}
