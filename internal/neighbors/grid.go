package neighbors

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/banshee-data/pointclean/internal/geom"
)

// estimatedPointsPerCell is used for initial grid capacity estimation.
const estimatedPointsPerCell = 4

// maxCellIndex bounds the cell coordinate along each axis. Points whose
// coordinate divided by the cell size falls outside ±maxCellIndex cannot be
// bucketed and switch the grid to a linear scan.
const maxCellIndex = 1 << 50

// Grid answers neighbour queries with a uniform voxel grid.
// Cell size should approximately match the typical neighbourhood radius;
// exact-k queries expand shell by shell until the k-th distance is proven.
// A query whose shell walk would cost more than scanning every point
// finishes with a linear scan instead, so isolated points stay cheap.
type Grid struct {
	CellSize float64
	Cells    map[cellKey][]int // cell → point indices

	points []geom.Point
	lo, hi cellKey // bounds of occupied cells
	linear bool    // some point lies beyond maxCellIndex
}

type cellKey struct {
	X, Y, Z int64
}

// NewGrid creates an empty grid with the specified cell size.
func NewGrid(cellSize float64) (*Grid, error) {
	if !(cellSize > 0) || math.IsInf(cellSize, 1) {
		return nil, ErrInvalidCellSize
	}
	return &Grid{
		CellSize: cellSize,
		Cells:    make(map[cellKey][]int),
	}, nil
}

// Build populates the grid from points, replacing any previous contents.
func (g *Grid) Build(points []geom.Point) {
	g.points = append([]geom.Point(nil), points...)
	g.Cells = make(map[cellKey][]int, len(points)/estimatedPointsPerCell+1)
	g.linear = false

	for i, p := range g.points {
		c, ok := g.cellOf(p)
		if !ok {
			g.Cells = make(map[cellKey][]int)
			g.linear = true
			return
		}
		if i == 0 {
			g.lo, g.hi = c, c
		} else {
			g.lo = cellKey{min(g.lo.X, c.X), min(g.lo.Y, c.Y), min(g.lo.Z, c.Z)}
			g.hi = cellKey{max(g.hi.X, c.X), max(g.hi.Y, c.Y), max(g.hi.Z, c.Z)}
		}
		g.Cells[c] = append(g.Cells[c], i)
	}
}

// cellOf returns the cell holding p, or false when p is beyond the
// representable cell range or not finite.
func (g *Grid) cellOf(p geom.Point) (cellKey, bool) {
	var c [3]int64
	for i, v := range [3]float64{p.X, p.Y, p.Z} {
		f := math.Floor(v / g.CellSize)
		if !(f >= -maxCellIndex && f <= maxCellIndex) {
			return cellKey{}, false
		}
		c[i] = int64(f)
	}
	return cellKey{c[0], c[1], c[2]}, true
}

// Neighbors implements Query.
func (g *Grid) Neighbors(q geom.Point, k int, radius float64) []geom.Point {
	if len(g.points) == 0 {
		return nil
	}
	keeper := keeperFor(k, radius)
	if keeper == nil {
		return nil
	}
	center, ok := g.cellOf(q)
	if g.linear || !ok {
		return g.scan(q, keeper)
	}
	budget := float64(len(g.points))

	if radius > 0 {
		reach := g.lastShell(center)
		if cells := math.Ceil(radius / g.CellSize); cells < float64(reach) {
			reach = int64(cells)
		}
		if shellCost(reach) > budget {
			return g.scan(q, keeper)
		}
		for r := int64(0); r <= reach; r++ {
			g.visitShell(q, center, r, keeper)
		}
		return drain(heapOf(keeper))
	}

	// Points outside shell r are at least r cells away along some axis, so
	// once the k-th distance fits inside that bound the search is done.
	last := g.lastShell(center)
	for r := int64(0); r <= last; r++ {
		if shellCost(r) > budget {
			return g.scan(q, keeperFor(k, radius))
		}
		g.visitShell(q, center, r, keeper)
		if full(keeper, k) {
			bound := float64(r) * g.CellSize
			if heapOf(keeper)[0].Dist <= bound*bound {
				break
			}
		}
	}
	return drain(heapOf(keeper))
}

// scan offers every stored point to keeper.
func (g *Grid) scan(q geom.Point, keeper kdtree.Keeper) []geom.Point {
	for _, p := range g.points {
		keeper.Keep(kdtree.ComparableDist{Comparable: toKD(p), Dist: geom.SquaredDistance(q, p)})
	}
	return drain(heapOf(keeper))
}

// shellCost is the number of cells in shells 0 through r, (2r+1)³.
func shellCost(r int64) float64 {
	side := 2*float64(r) + 1
	return side * side * side
}

// lastShell is the shell index beyond which no occupied cell exists.
func (g *Grid) lastShell(c cellKey) int64 {
	var r int64
	for _, d := range []int64{
		c.X - g.lo.X, g.hi.X - c.X,
		c.Y - g.lo.Y, g.hi.Y - c.Y,
		c.Z - g.lo.Z, g.hi.Z - c.Z,
	} {
		r = max(r, d)
	}
	return r
}

// visitShell offers every point in cells at Chebyshev distance exactly r
// from c to keeper. The scan is clipped to the occupied bounds.
func (g *Grid) visitShell(q geom.Point, c cellKey, r int64, keeper kdtree.Keeper) {
	x0, x1 := max(c.X-r, g.lo.X), min(c.X+r, g.hi.X)
	y0, y1 := max(c.Y-r, g.lo.Y), min(c.Y+r, g.hi.Y)
	z0, z1 := max(c.Z-r, g.lo.Z), min(c.Z+r, g.hi.Z)

	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			if abs64(x-c.X) == r || abs64(y-c.Y) == r {
				for z := z0; z <= z1; z++ {
					g.visitCell(q, cellKey{x, y, z}, keeper)
				}
				continue
			}
			// Interior column: only the two caps lie on the shell.
			if c.Z-r >= g.lo.Z {
				g.visitCell(q, cellKey{x, y, c.Z - r}, keeper)
			}
			if r > 0 && c.Z+r <= g.hi.Z {
				g.visitCell(q, cellKey{x, y, c.Z + r}, keeper)
			}
		}
	}
}

func (g *Grid) visitCell(q geom.Point, cell cellKey, keeper kdtree.Keeper) {
	for _, idx := range g.Cells[cell] {
		p := g.points[idx]
		keeper.Keep(kdtree.ComparableDist{Comparable: toKD(p), Dist: geom.SquaredDistance(q, p)})
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
