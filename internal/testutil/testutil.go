// Package testutil provides shared test fixtures for point clouds.
//
// This package centralises the synthetic clouds and file helpers used
// across package tests so expectations stay comparable between packages.
package testutil

import (
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/banshee-data/pointclean/internal/geom"
)

// LinePoints returns n points spaced 1 apart along the X axis, starting at
// the origin.
func LinePoints(n int) []geom.Point {
	pts := make([]geom.Point, n)
	for i := range pts {
		pts[i] = geom.Point{X: float64(i)}
	}
	return pts
}

// RandomCloud returns n points drawn uniformly from the cube [lo, hi)^3.
// The same seed always yields the same cloud.
func RandomCloud(seed int64, n int, lo, hi float64) []geom.Point {
	rng := rand.New(rand.NewSource(seed))
	span := hi - lo
	pts := make([]geom.Point, n)
	for i := range pts {
		pts[i] = geom.Point{
			X: lo + rng.Float64()*span,
			Y: lo + rng.Float64()*span,
			Z: lo + rng.Float64()*span,
		}
	}
	return pts
}

// SortedPoints returns a copy of pts ordered by X, then Y, then Z, for
// comparing point sets regardless of order.
func SortedPoints(pts []geom.Point) []geom.Point {
	out := append([]geom.Point(nil), pts...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].Z < out[j].Z
	})
	return out
}

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
