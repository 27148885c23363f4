package neighbors

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/banshee-data/pointclean/internal/geom"
)

// Index kinds accepted by New.
const (
	KindKDTree     = "kdtree"
	KindGrid       = "grid"
	KindBruteForce = "brute"
)

var (
	// ErrUnknownIndex is returned by New for an unrecognised index kind.
	ErrUnknownIndex = errors.New("neighbors: unknown index kind")
	// ErrInvalidCellSize is returned when a grid is requested with a
	// non-positive cell size.
	ErrInvalidCellSize = errors.New("neighbors: cell size must be positive")
)

// Query retrieves the neighbourhood of a position.
//
// With radius == 0 it returns the k stored positions nearest to q (fewer
// only when fewer are stored). With radius > 0 it returns the stored
// positions within radius of q (inclusive), limited to the k closest; k <= 0
// lifts the limit. Results are ordered nearest first.
type Query interface {
	Neighbors(q geom.Point, k int, radius float64) []geom.Point
}

// New builds an index of the given kind over points. cellSize is only used
// by the grid index.
func New(kind string, points []geom.Point, cellSize float64) (Query, error) {
	switch strings.ToLower(kind) {
	case "", KindKDTree:
		return NewKDTree(points), nil
	case KindGrid:
		g, err := NewGrid(cellSize)
		if err != nil {
			return nil, err
		}
		g.Build(points)
		return g, nil
	case KindBruteForce:
		return NewBruteForce(points), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownIndex, kind)
	}
}

// radiusKeeper retains ComparableDists within a squared radius, at most
// limit of them when limit > 0. It starts with a nil sentinel carrying the
// squared radius, which is evicted first once the limit is reached.
type radiusKeeper struct {
	kdtree.Heap
	limit int
}

func newRadiusKeeper(sqRadius float64, limit int) *radiusKeeper {
	return &radiusKeeper{Heap: kdtree.Heap{{Dist: sqRadius}}, limit: limit}
}

// Keep pushes c if it lies within the current maximum distance, dropping
// the farthest retained value when the limit is exceeded.
func (k *radiusKeeper) Keep(c kdtree.ComparableDist) {
	if c.Dist > k.Heap[0].Dist {
		return
	}
	heap.Push(k, c)
	if k.limit > 0 && k.Len() > k.limit {
		heap.Pop(k)
	}
}

// keeperFor picks the gonum Keeper matching the Query contract, or nil
// when the request cannot return anything.
func keeperFor(k int, radius float64) kdtree.Keeper {
	switch {
	case radius > 0:
		return newRadiusKeeper(radius*radius, k)
	case k > 0:
		return kdtree.NewNKeeper(k)
	default:
		return nil
	}
}

// heapOf exposes the retained values of a keeper built by keeperFor.
func heapOf(k kdtree.Keeper) kdtree.Heap {
	switch k := k.(type) {
	case *kdtree.NKeeper:
		return k.Heap
	case *radiusKeeper:
		return k.Heap
	default:
		return nil
	}
}

// full reports whether an exact-k keeper holds k real values.
func full(k kdtree.Keeper, want int) bool {
	h := heapOf(k)
	return len(h) == want && h[0].Comparable != nil
}

// drain returns the positions held by h nearest first, skipping sentinels.
func drain(h kdtree.Heap) []geom.Point {
	kept := make([]kdtree.ComparableDist, 0, len(h))
	for _, c := range h {
		if c.Comparable != nil {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Dist < kept[j].Dist })

	out := make([]geom.Point, len(kept))
	for i, c := range kept {
		out[i] = toPoint(c.Comparable.(kdtree.Point))
	}
	return out
}

func toKD(p geom.Point) kdtree.Point { return kdtree.Point(p.Coords()) }

func toPoint(p kdtree.Point) geom.Point { return geom.Point{X: p[0], Y: p[1], Z: p[2]} }
