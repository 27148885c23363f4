package outlier

import (
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/pointclean/internal/geom"
	"github.com/banshee-data/pointclean/internal/neighbors"
)

// AverageNeighborDistance returns the mean squared distance from q to the
// neighbourhood that idx reports for it. radius == 0 asks for exactly k
// nearest neighbours; radius > 0 asks for at most k neighbours within
// radius. An empty neighbourhood yields ErrNoNeighbors rather than NaN.
func AverageNeighborDistance(q geom.Point, idx neighbors.Query, k int, radius float64) (float64, error) {
	nbrs := idx.Neighbors(q, k, radius)
	if len(nbrs) == 0 {
		return 0, ErrNoNeighbors
	}
	sq := make([]float64, len(nbrs))
	for i, p := range nbrs {
		sq[i] = geom.SquaredDistance(q, p)
	}
	return stat.Mean(sq, nil), nil
}
