package neighbors

import (
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/banshee-data/pointclean/internal/geom"
)

// BruteForce scans every stored point on each query. It is the reference
// index for small sets and for checking the other indexes.
type BruteForce struct {
	points []geom.Point
}

// NewBruteForce stores a copy of points.
func NewBruteForce(points []geom.Point) *BruteForce {
	return &BruteForce{points: append([]geom.Point(nil), points...)}
}

// Neighbors implements Query.
func (b *BruteForce) Neighbors(q geom.Point, k int, radius float64) []geom.Point {
	keeper := keeperFor(k, radius)
	if keeper == nil || len(b.points) == 0 {
		return nil
	}
	for _, p := range b.points {
		keeper.Keep(kdtree.ComparableDist{Comparable: toKD(p), Dist: geom.SquaredDistance(q, p)})
	}
	return drain(heapOf(keeper))
}
