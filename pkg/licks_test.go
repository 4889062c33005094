package paqalign_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	paqalign "github.com/brainbox-lab/paqalign/pkg"
)

func TestBinLicks(t *testing.T) {
	binned := paqalign.BinLicks([]int{2, 5, 10, 15, 20, 30}, []float64{5, 15, 25})
	assert.Equal(t, [][]float64{{0, 5, 10}, {0, 5}, {5}}, binned)
	assert.Equal(t, []int{3, 2, 1}, paqalign.LickCounts(binned))

	empty := paqalign.BinLicks(nil, []float64{0, 10})
	assert.Equal(t, [][]float64{{}, {}}, empty)
	assert.Empty(t, paqalign.BinLicks([]int{1, 2}, nil))
}

func TestScrubRewardLicks(t *testing.T) {
	binned := [][]float64{{0, 5, 10}, {0, 5}, {5}, {1, 8}}
	rewards := []float64{4, math.NaN(), 10, 1}

	scrubbed := paqalign.ScrubRewardLicks(binned, rewards, 3)
	assert.Equal(t, [][]float64{{0, 10}, {0, 5}, {5}, {1, 8}}, scrubbed)
	assert.Equal(t, []int{2, 2, 1, 2}, paqalign.LickCounts(scrubbed))
	assert.Equal(t, []float64{0, 5, 10}, binned[0], "input is not modified")

	short := paqalign.ScrubRewardLicks(binned, []float64{4}, 3)
	assert.Equal(t, [][]float64{{0, 10}, {0, 5}, {5}, {1, 8}}, short)
}
