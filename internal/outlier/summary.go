package outlier

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary describes the score distribution of a run.
type Summary struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Median float64
	P90    float64
}

// Summarize computes a Summary over scores. Scores from Result are already
// ascending; other input is sorted on a copy.
func Summarize(scores []float64) Summary {
	if len(scores) == 0 {
		return Summary{}
	}
	sorted := scores
	if !sort.Float64sAreSorted(sorted) {
		sorted = append([]float64(nil), scores...)
		sort.Float64s(sorted)
	}

	mean, std := stat.MeanStdDev(sorted, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return Summary{
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   mean,
		StdDev: std,
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90:    stat.Quantile(0.9, stat.Empirical, sorted, nil),
	}
}

// Summary summarises the scores of a completed run.
func (r Result) Summary() Summary { return Summarize(r.Scores) }
