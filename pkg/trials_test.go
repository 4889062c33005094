package paqalign_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	paqalign "github.com/brainbox-lab/paqalign/pkg"
)

// fluMatrix holds cell*1000 + frame at every position.
func fluMatrix(cells, frames int) *mat.Dense {
	m := mat.NewDense(cells, frames, nil)
	for c := 0; c < cells; c++ {
		for f := 0; f < frames; f++ {
			m.Set(c, f, float64(c*1000+f))
		}
	}
	return m
}

func TestSplitTrialsScenario(t *testing.T) {
	w := paqalign.Window{Pre: 10, Post: 20}
	tensor, kept, err := paqalign.SplitTrials(fluMatrix(5, 100), []int{10, 50, 95}, w)
	require.NoError(t, err)

	cells, steps, trials := tensor.Shape()
	assert.Equal(t, [3]int{5, 30, 2}, [3]int{cells, steps, trials})
	assert.Equal(t, []int{10, 50}, kept)

	for c := 0; c < cells; c++ {
		for s := 0; s < steps; s++ {
			for k, anchor := range kept {
				assert.Equal(t, float64(c*1000+anchor-w.Pre+s), tensor.At(c, s, k))
			}
		}
	}
}

func TestSplitTrialsBounds(t *testing.T) {
	w := paqalign.Window{Pre: 10, Post: 20}
	anchors := []int{9, 10, 79, 80, -1, 200}
	_, kept, err := paqalign.SplitTrials(fluMatrix(2, 100), anchors, w)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 79}, kept)

	for _, a := range anchors {
		assert.Equal(t, a >= w.Pre && a < 100-w.Post, w.Fits(a, 100), "anchor %d", a)
	}
}

func TestSplitTrialsKeepsAllValidAnchors(t *testing.T) {
	anchors := []int{40, 20, 60, 20}
	tensor, kept, err := paqalign.SplitTrials(fluMatrix(3, 100), anchors, paqalign.Window{Pre: 5, Post: 5})
	require.NoError(t, err)
	assert.Equal(t, anchors, kept, "order is preserved")
	assert.Equal(t, len(anchors), tensor.Trials)
}

func TestSplitTrialsInvalidWindow(t *testing.T) {
	for _, w := range []paqalign.Window{{Pre: 0, Post: 0}, {Pre: -1, Post: 5}, {Pre: 5, Post: -1}} {
		_, _, err := paqalign.SplitTrials(fluMatrix(1, 10), []int{5}, w)
		assert.ErrorIs(t, err, paqalign.ErrBadWindow)
	}
}

func TestSplitTrialsNoValidAnchors(t *testing.T) {
	tensor, kept, err := paqalign.SplitTrials(fluMatrix(2, 10), []int{0, 9}, paqalign.Window{Pre: 2, Post: 2})
	require.NoError(t, err)
	assert.Empty(t, kept)
	assert.Equal(t, 0, tensor.Trials)
	assert.Nil(t, tensor.MeanOverTrials())
}

func TestSplitTrace(t *testing.T) {
	trace := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	tensor, kept, err := paqalign.SplitTrace(trace, []int{2, 5}, paqalign.Window{Pre: 1, Post: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5}, kept)

	first := tensor.Trial(0)
	assert.Equal(t, []float64{1, 2, 3}, first.RawRowView(0))

	mean := tensor.MeanOverTrials()
	assert.Equal(t, []float64{2.5, 3.5, 4.5}, mean.RawRowView(0))

	empty, kept, err := paqalign.SplitTrace(nil, []int{1}, paqalign.Window{Pre: 1, Post: 1})
	require.NoError(t, err)
	assert.Empty(t, kept)
	assert.Equal(t, 0, empty.Trials)
}
