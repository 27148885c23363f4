package outlier

import "sort"

// entry is one scored element. index is the element's position in the
// input slice.
type entry[E any] struct {
	score float64
	index int
	elem  E
}

// ranking collects scored elements and hands them back in ascending score
// order. Equal scores keep their insertion order.
type ranking[E any] struct {
	entries []entry[E]
	sorted  bool
}

func newRanking[E any](capacity int) *ranking[E] {
	return &ranking[E]{entries: make([]entry[E], 0, capacity)}
}

func (r *ranking[E]) insert(score float64, index int, elem E) {
	r.entries = append(r.entries, entry[E]{score: score, index: index, elem: elem})
	r.sorted = false
}

func (r *ranking[E]) len() int { return len(r.entries) }

func (r *ranking[E]) ascending() []entry[E] {
	if !r.sorted {
		sort.SliceStable(r.entries, func(i, j int) bool {
			return r.entries[i].score < r.entries[j].score
		})
		r.sorted = true
	}
	return r.entries
}
