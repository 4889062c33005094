package paqalign_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	paqalign "github.com/brainbox-lab/paqalign/pkg"
)

func TestFindPeaks(t *testing.T) {
	x := []float64{0, 1, 0, 2, 2, 2, 0, 5, 0}

	assert.Equal(t, []int{1, 4, 7}, paqalign.FindPeaks(x, paqalign.PeakParams{}), "plateau reports its midpoint")
	assert.Equal(t, []int{4, 7}, paqalign.FindPeaks(x, paqalign.PeakParams{Height: paqalign.Value(1.5)}))
	assert.Equal(t, []int{4, 7}, paqalign.FindPeaks(x, paqalign.PeakParams{Prominence: paqalign.Value(1.5)}))
	assert.Equal(t, []int{1, 7}, paqalign.FindPeaks(x, paqalign.PeakParams{Distance: paqalign.Value(4)}))
	assert.Empty(t, paqalign.FindPeaks([]float64{1, 1, 1}, paqalign.PeakParams{}))
	assert.Empty(t, paqalign.FindPeaks(nil, paqalign.PeakParams{}))
}

func TestProminences(t *testing.T) {
	x := []float64{0, 1, 0, 2, 2, 2, 0, 5, 0}
	assert.Equal(t, []float64{1, 2, 5}, paqalign.Prominences(x, []int{1, 4, 7}))

	// The lower peak is bounded by the higher neighbour on the right.
	y := []float64{1, 3, 2, 6, 0}
	assert.Equal(t, []float64{1, 5}, paqalign.Prominences(y, []int{1, 3}))
}
