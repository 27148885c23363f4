package neighbors

import (
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/banshee-data/pointclean/internal/geom"
)

// KDTree answers neighbour queries with a gonum k-d tree.
type KDTree struct {
	tree *kdtree.Tree
}

// NewKDTree builds a k-d tree over a copy of points.
func NewKDTree(points []geom.Point) *KDTree {
	pts := make(kdtree.Points, len(points))
	for i, p := range points {
		pts[i] = toKD(p)
	}
	return &KDTree{tree: kdtree.New(pts, false)}
}

// Neighbors implements Query.
func (t *KDTree) Neighbors(q geom.Point, k int, radius float64) []geom.Point {
	if t.tree == nil || t.tree.Root == nil {
		return nil
	}
	keeper := keeperFor(k, radius)
	if keeper == nil {
		return nil
	}
	t.tree.NearestSet(keeper, toKD(q))
	return drain(heapOf(keeper))
}
