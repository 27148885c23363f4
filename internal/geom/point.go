package geom

import "fmt"

// Point is a position in Cartesian coordinates (metres).
type Point struct {
	X, Y, Z float64
}

// SquaredDistance returns the squared Euclidean distance between a and b.
func SquaredDistance(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return dx*dx + dy*dy + dz*dz
}

// Coords returns the coordinates as a slice in X, Y, Z order.
func (p Point) Coords() []float64 {
	return []float64{p.X, p.Y, p.Z}
}

func (p Point) String() string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", p.X, p.Y, p.Z)
}

// PointMap maps a stored element to its position.
type PointMap[E any] func(E) Point

// IdentityMap is the PointMap for slices that already hold points.
func IdentityMap(p Point) Point { return p }

// Positions applies pm to every element of elems.
func Positions[E any](elems []E, pm PointMap[E]) []Point {
	if len(elems) == 0 {
		return nil
	}
	out := make([]Point, len(elems))
	for i, e := range elems {
		out[i] = pm(e)
	}
	return out
}
