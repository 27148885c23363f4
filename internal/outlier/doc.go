// Package outlier removes statistical outliers from 3D point sets.
//
// Each point is scored by the mean squared distance to its nearest
// neighbours. Points are ranked by ascending score and the caller's slice
// is rewritten so the points to keep come first, in ranking order, and the
// outliers follow. The returned boundary splits the two; callers truncate
// with points[:boundary] (erase-remove idiom).
//
// Two policies decide the boundary. ThresholdPercent caps the share of
// points that may be removed; ThresholdDistance keeps every point whose
// root mean squared neighbour distance is below it. The boundary keeps as
// many points as the more permissive policy asks for. ThresholdPercent = 100
// leaves only the distance policy in effect, apart from the lowest-scoring
// point which is always kept; ThresholdDistance = 0 leaves only the
// percentage policy. Points with
// equal scores straddling the boundary keep their input order, so which of
// them survives depends on that order.
//
// Scoring is a single synchronous pass with one cancellation checkpoint per
// point. A cancelled run leaves the slice exactly as it was.
//
// Key types: Options, Result, Cutoff.
//
// Dependency rule: outlier depends on geom and neighbors only; it never
// loads or stores point data.
package outlier
