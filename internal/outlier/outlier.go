package outlier

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/pointclean/internal/geom"
	"github.com/banshee-data/pointclean/internal/neighbors"
)

// Defaults applied by DefaultOptions.
const (
	DefaultThresholdPercent  = 10.0
	DefaultThresholdDistance = 0.0
	DefaultNeighborRadius    = 0.0
)

// ProgressFunc receives the fraction of points scored so far, in (0, 1].
// Returning false cancels the run.
type ProgressFunc func(fraction float64) bool

// Options configures a run. The zero value is valid for point slices but
// sets ThresholdPercent to 0, which removes nothing by percentage; use
// DefaultOptions for the documented defaults.
type Options[E any] struct {
	// PointMap maps an element to its position. It may be nil when E is
	// geom.Point.
	PointMap geom.PointMap[E]

	// Index answers neighbour queries. It must index the positions of the
	// points being filtered. When nil a KD-tree is built over them.
	Index neighbors.Query

	// NeighborRadius limits neighbourhoods to a sphere; k then caps the
	// neighbour count. 0 selects exact k-nearest neighbourhoods.
	NeighborRadius float64

	// ThresholdPercent is the maximum percentage of points to remove.
	ThresholdPercent float64

	// ThresholdDistance keeps points whose root mean squared neighbour
	// distance is below it, regardless of ThresholdPercent.
	ThresholdDistance float64

	// Progress is called after each point is scored.
	Progress ProgressFunc
}

// DefaultOptions returns options with the documented defaults.
func DefaultOptions[E any]() Options[E] {
	return Options[E]{
		NeighborRadius:    DefaultNeighborRadius,
		ThresholdPercent:  DefaultThresholdPercent,
		ThresholdDistance: DefaultThresholdDistance,
	}
}

// Result describes a finished or cancelled run.
type Result struct {
	// Boundary splits kept points [0, Boundary) from outliers
	// [Boundary, N). It equals N when the run was cancelled.
	Boundary int
	// Removed is N - Boundary.
	Removed int
	// Canceled is set when the progress callback or the context stopped
	// the run before the slice was rewritten.
	Canceled bool
	// Cutoff is the rule applied to the ranking. Zero when cancelled.
	Cutoff Cutoff
	// Scores holds the score of each point of the rewritten slice, in the
	// same (ascending) order. Nil when cancelled.
	Scores []float64
	// Elapsed is the wall time spent in the run.
	Elapsed time.Duration
}

// RemoveOutliers reorders points so that the points to keep come first and
// returns the index of the first point to remove. It is Run without a
// context and without the report.
func RemoveOutliers[E any](points []E, k int, opts Options[E]) (int, error) {
	res, err := Run(context.Background(), points, k, opts)
	return res.Boundary, err
}

// Run scores every point, ranks them and rewrites points in place. The
// slice is modified only when the full scan completes; on a precondition
// error or cancellation it is left untouched and Result.Boundary is
// len(points).
//
// Cancellation through opts.Progress is not an error. Cancellation through
// ctx returns ctx.Err().
func Run[E any](ctx context.Context, points []E, k int, opts Options[E]) (Result, error) {
	start := time.Now()
	n := len(points)
	aborted := Result{Boundary: n}

	pm, err := opts.validate(n, k)
	if err != nil {
		opsf("rejected run: n=%d k=%d percent=%.2f distance=%.4f radius=%.4f: %v",
			n, k, opts.ThresholdPercent, opts.ThresholdDistance, opts.NeighborRadius, err)
		return aborted, err
	}

	positions := geom.Positions(points, pm)
	idx := opts.Index
	if idx == nil {
		idx = neighbors.NewKDTree(positions)
	}

	rank := newRanking[E](n)
	traceEvery := max(n/10, 1)
	for i, e := range points {
		score, err := AverageNeighborDistance(positions[i], idx, k, opts.NeighborRadius)
		if err != nil {
			opsf("scan failed at point %d of %d %v: %v", i, n, positions[i], err)
			return aborted, fmt.Errorf("point %d: %w", i, err)
		}
		rank.insert(score, i, e)

		scored := i + 1
		if scored%traceEvery == 0 {
			tracef("scored %d/%d points", scored, n)
		}
		if opts.Progress != nil && !opts.Progress(float64(scored)/float64(n)) {
			opsf("run cancelled by progress callback after %d/%d points", scored, n)
			aborted.Canceled = true
			aborted.Elapsed = time.Since(start)
			return aborted, nil
		}
		if err := ctx.Err(); err != nil {
			opsf("run cancelled by context after %d/%d points: %v", scored, n, err)
			aborted.Canceled = true
			aborted.Elapsed = time.Since(start)
			return aborted, err
		}
	}

	cut := SelectCutoff(rank.len(), opts.ThresholdPercent, opts.ThresholdDistance)
	ranked := rank.ascending()
	boundary := compact(points, ranked, cut)

	scores := make([]float64, len(ranked))
	for i, e := range ranked {
		scores[i] = e.score
	}

	res := Result{
		Boundary: boundary,
		Removed:  n - boundary,
		Cutoff:   cut,
		Scores:   scores,
		Elapsed:  time.Since(start),
	}
	diagf("n=%d k=%d radius=%.4f percent=%.2f distance=%.4f quota_index=%d score_cutoff=%.6f boundary=%d removed=%d elapsed=%s",
		n, k, opts.NeighborRadius, opts.ThresholdPercent, opts.ThresholdDistance,
		cut.QuotaIndex, cut.ScoreCutoff, boundary, res.Removed, res.Elapsed)
	return res, nil
}

// validate checks the preconditions of a run and resolves the point map.
func (o Options[E]) validate(n, k int) (geom.PointMap[E], error) {
	if n == 0 {
		return nil, ErrEmptyPointSet
	}
	if k < 2 {
		return nil, fmt.Errorf("%w: k=%d", ErrTooFewNeighbors, k)
	}
	if math.IsNaN(o.ThresholdPercent) || o.ThresholdPercent < 0 || o.ThresholdPercent > 100 {
		return nil, fmt.Errorf("%w: got %v", ErrThresholdPercent, o.ThresholdPercent)
	}
	if math.IsNaN(o.NeighborRadius) || o.NeighborRadius < 0 {
		return nil, fmt.Errorf("%w: got %v", ErrNegativeRadius, o.NeighborRadius)
	}
	if math.IsNaN(o.ThresholdDistance) || o.ThresholdDistance < 0 {
		return nil, fmt.Errorf("%w: got %v", ErrNegativeDistance, o.ThresholdDistance)
	}
	if o.PointMap != nil {
		return o.PointMap, nil
	}
	if pm, ok := any(geom.PointMap[geom.Point](geom.IdentityMap)).(geom.PointMap[E]); ok {
		return pm, nil
	}
	return nil, ErrNoPointMap
}
