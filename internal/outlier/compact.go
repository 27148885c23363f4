package outlier

// compact writes ranked back into points left to right and returns the
// index one past the last kept slot. len(ranked) must equal len(points).
func compact[E any](points []E, ranked []entry[E], cut Cutoff) int {
	boundary := 0
	for i, e := range ranked {
		points[i] = e.elem
		if cut.Keep(i, e.score) {
			boundary = i + 1
		}
	}
	return boundary
}
