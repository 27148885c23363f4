package outlier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectCutoff(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		percent   float64
		distance  float64
		wantQuota int
		wantScore float64
	}{
		{"default ten percent of eleven", 11, 10, 0, 9, 0},
		{"default ten percent of ten", 10, 10, 0, 9, 0},
		{"no percentage removal", 7, 0, 0, 7, 0},
		{"percentage fully open", 7, 100, 0, 0, 0},
		{"half", 9, 50, 0, 4, 0},
		{"distance squared", 5, 10, 3, 4, 9},
		{"single point", 1, 10, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectCutoff(tt.n, tt.percent, tt.distance)
			assert.Equal(t, tt.wantQuota, got.QuotaIndex)
			assert.InDelta(t, tt.wantScore, got.ScoreCutoff, 1e-12)
		})
	}
}

func TestCutoffKeep(t *testing.T) {
	c := Cutoff{QuotaIndex: 2, ScoreCutoff: 4}

	assert.True(t, c.Keep(0, 100), "rank within quota is kept")
	assert.True(t, c.Keep(2, 100), "quota index itself is kept")
	assert.False(t, c.Keep(3, 100), "rank past quota with large score is removed")
	assert.True(t, c.Keep(3, 3.99), "score below cutoff is kept past quota")
	assert.False(t, c.Keep(3, 4), "score equal to cutoff is not below it")

	zero := Cutoff{}
	assert.True(t, zero.Keep(0, 0))
	assert.False(t, zero.Keep(1, 0), "zero cutoff never keeps by score")
}
