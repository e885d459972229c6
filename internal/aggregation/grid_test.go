package aggregation

import (
	"math"
	"testing"

	"github.com/jengzang/permit-map-backend-go/internal/models"
)

func TestCellSizeForZoom_NonIncreasing(t *testing.T) {
	opts := DefaultOptions()

	prev := math.Inf(1)
	for zoom := 0.0; zoom <= 22; zoom += 0.25 {
		size := CellSizeForZoom(zoom, opts.GridSteps)
		if size <= 0 {
			t.Fatalf("expected positive cell size at zoom %.2f, got %f", zoom, size)
		}
		if size > prev {
			t.Fatalf("cell size grew from %f to %f at zoom %.2f", prev, size, zoom)
		}
		prev = size
	}
}

func TestCellSizeForZoom_Steps(t *testing.T) {
	steps := DefaultOptions().GridSteps
	tests := []struct {
		zoom float64
		want float64
	}{
		{-1, 0.05},
		{10.5, 0.05},
		{11, 0.02},
		{12.9, 0.01},
		{13, 0.005},
		{20, 0.005},
	}
	for _, tt := range tests {
		if got := CellSizeForZoom(tt.zoom, steps); got != tt.want {
			t.Errorf("zoom %.1f: expected %f, got %f", tt.zoom, tt.want, got)
		}
	}
}

func TestRadiusHint(t *testing.T) {
	opts := DefaultOptions()

	if got := RadiusHint(1, opts); got != opts.RadiusMin {
		t.Errorf("expected min radius %f for a single point, got %f", opts.RadiusMin, got)
	}
	if got := RadiusHint(1_000_000, opts); got != opts.RadiusMax {
		t.Errorf("expected max radius %f for a huge bucket, got %f", opts.RadiusMax, got)
	}

	// Sub-linear: 4x the members is well under 4x the radius
	small, large := RadiusHint(25, opts), RadiusHint(100, opts)
	if !(large > small && large < 2*small) {
		t.Errorf("expected sub-linear growth, got %f -> %f", small, large)
	}
}

func TestBucketPoints(t *testing.T) {
	opts := DefaultOptions()
	points := []models.Point{
		pt("1", 30.01, -97.74, models.CategorySolar, 1),
		pt("2", 30.03, -97.72, models.CategoryBattery, 2),
		pt("3", 30.02, -97.73, models.CategoryBattery, 2),
		pt("4", 30.26, -97.74, models.CategorySolar, 1),
	}
	points[0].ZipCode = "78701"

	buckets := BucketPoints(points, 0.05, opts)
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}

	first := buckets[0]
	wantKey := models.CellKey{Row: int64(math.Floor(30.01 / 0.05)), Col: int64(math.Floor(-97.74 / 0.05))}
	if first.CellKey != wantKey {
		t.Errorf("expected cell key %v, got %v", wantKey, first.CellKey)
	}
	if first.MemberCount != 3 {
		t.Errorf("expected 3 members, got %d", first.MemberCount)
	}
	if first.DominantCategory != models.CategoryBattery {
		t.Errorf("expected battery to dominate, got %s", first.DominantCategory)
	}
	if !approx(first.Centroid.Lat, 30.02, 1e-9) || !approx(first.Centroid.Lon, -97.73, 1e-9) {
		t.Errorf("expected centroid (30.02,-97.73), got %+v", first.Centroid)
	}
	if len(first.ClusterIDs) != 2 || first.ClusterIDs[0] != 1 || first.ClusterIDs[1] != 2 {
		t.Errorf("expected cluster ids [1 2], got %v", first.ClusterIDs)
	}
	if len(first.ZipCodes) != 1 || first.ZipCodes[0] != "78701" {
		t.Errorf("expected zip codes [78701], got %v", first.ZipCodes)
	}
	if buckets[1].MemberCount != 1 {
		t.Errorf("expected second bucket to hold 1 point, got %d", buckets[1].MemberCount)
	}
}

func TestBucketPoints_NegativeCoordinatesFloor(t *testing.T) {
	buckets := BucketPoints([]models.Point{
		pt("1", -0.01, -0.01, models.CategorySolar, 1),
		pt("2", 0.01, 0.01, models.CategorySolar, 1),
	}, 0.05, DefaultOptions())

	if len(buckets) != 2 {
		t.Fatalf("expected points on either side of zero in separate cells, got %d buckets", len(buckets))
	}
	if buckets[0].CellKey != (models.CellKey{Row: -1, Col: -1}) {
		t.Errorf("expected cell (-1,-1), got %v", buckets[0].CellKey)
	}
}

func TestDominantCategory(t *testing.T) {
	tests := []struct {
		name string
		cats []models.Category
		want models.Category
	}{
		{"plurality", []models.Category{"solar", "battery", "battery"}, models.CategoryBattery},
		{"tie goes to first seen", []models.Category{"generator", "solar", "solar", "generator"}, models.CategoryGenerator},
		{"sentinel cannot win", []models.Category{"uncategorized", "uncategorized", "uncategorized", "adu"}, models.CategoryADU},
		{"sentinel alone wins", []models.Category{"uncategorized", "uncategorized"}, models.CategoryUncategorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := make([]models.Point, len(tt.cats))
			for i, c := range tt.cats {
				points[i] = pt("", 30.01, -97.74, c, 1)
			}
			buckets := BucketPoints(points, 1, DefaultOptions())
			if len(buckets) != 1 {
				t.Fatalf("expected 1 bucket, got %d", len(buckets))
			}
			if buckets[0].DominantCategory != tt.want {
				t.Errorf("expected %s, got %s", tt.want, buckets[0].DominantCategory)
			}
		})
	}
}

func TestBucketPoints_Empty(t *testing.T) {
	got := BucketPoints(nil, 0.05, DefaultOptions())
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil buckets, got %#v", got)
	}
}
