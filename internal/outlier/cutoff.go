package outlier

import "math"

// Cutoff is the removal rule for one run over a ranking of known size.
type Cutoff struct {
	// QuotaIndex is the last ascending-rank position kept by the
	// percentage policy alone.
	QuotaIndex int
	// ScoreCutoff is the squared threshold distance. Scores strictly below
	// it are kept whatever their rank.
	ScoreCutoff float64
}

// SelectCutoff derives the cutoff for n ranked points.
func SelectCutoff(n int, thresholdPercent, thresholdDistance float64) Cutoff {
	return Cutoff{
		QuotaIndex:  int(math.Floor(float64(n) * ((100 - thresholdPercent) / 100))),
		ScoreCutoff: thresholdDistance * thresholdDistance,
	}
}

// Keep reports whether the point at ascending rank i with the given score
// survives. Both conditions only turn from true to false as i grows over a
// sorted ranking, so the kept points always form a prefix.
func (c Cutoff) Keep(i int, score float64) bool {
	return i <= c.QuotaIndex || score < c.ScoreCutoff
}
