package paqalign_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paqalign "github.com/brainbox-lab/paqalign/pkg"
)

const (
	swapRate    = 1000
	swapSamples = 60000
	swapAt      = 20000
)

// frameStarts lists the starts of 3-sample frame pulses every 50 samples in
// [from, to).
func frameStarts(from, to int) []int {
	starts := make([]int, 0)
	for s := from + 25; s < to; s += 50 {
		starts = append(starts, s)
	}
	return starts
}

func swapParams() paqalign.SwapParams {
	p := paqalign.DefaultSwapParams(0, swapRate, 30)
	p.PeakDistance = 10
	return p
}

// swappedRecording simulates the frame clock moving from row 0 to row 2 at
// swapAt, with the constant line of row 2 moving to row 1. Row 0 keeps a few
// stray pulses after the fault.
func swappedRecording() [][]float64 {
	clock := pulses(swapSamples, 5, 3, frameStarts(0, swapAt)...)
	for _, s := range []int{25000, 35000, 45000, 55000} {
		for k := s; k < s+3; k++ {
			clock[k] = 5
		}
	}
	level := make([]float64, swapSamples)
	for i := swapAt; i < swapSamples; i++ {
		level[i] = 0.5
	}
	moved := pulses(swapSamples, 5, 3, frameStarts(swapAt, swapSamples)...)
	for i := 0; i < swapAt; i++ {
		moved[i] = 0.5
	}
	return [][]float64{clock, level, moved}
}

func TestCorrectChannelSwap(t *testing.T) {
	data := swappedRecording()
	result, err := paqalign.CorrectChannelSwap(data, swapParams())
	require.NoError(t, err)

	assert.True(t, result.Swapped)
	assert.Equal(t, []int{2, 0, 1}, result.Rotation)
	assert.Equal(t, 25001, result.SwapPoint)
	assert.Equal(t, []int{25001, 35001, 45001, 55001}, result.Boundaries)

	corrected := result.Data
	require.Len(t, corrected, 3)
	for i := range corrected {
		assert.Len(t, corrected[i], swapSamples)
	}
	assert.Equal(t, 5.0, corrected[0][30025], "frame clock restored on row 0")
	assert.Equal(t, 5.0, corrected[1][35001], "stray pulses moved to row 1")
	assert.Equal(t, 0.5, corrected[2][35001], "constant line moved to row 2")
	assert.Equal(t, data[0][:25001], corrected[0][:25001], "samples before the swap point are kept")

	assert.Equal(t, 0.0, data[0][30025], "input is not modified")
}

func TestCorrectChannelSwapDownward(t *testing.T) {
	data := swappedRecording()
	data[1], data[2] = data[2], data[1]

	result, err := paqalign.CorrectChannelSwap(data, swapParams())
	require.NoError(t, err)

	assert.True(t, result.Swapped)
	assert.Equal(t, []int{1, 2, 0}, result.Rotation)
	assert.Equal(t, 25001, result.SwapPoint)

	corrected := result.Data
	require.Len(t, corrected, 3)
	assert.Equal(t, 5.0, corrected[0][30025], "frame clock restored on row 0")
	assert.Equal(t, 0.0, corrected[0][30024])
	assert.Equal(t, 0.5, corrected[1][35001], "constant line moved to row 1")
	assert.Equal(t, 5.0, corrected[2][35001], "stray pulses moved to row 2")
	assert.Equal(t, data[1][:25001], corrected[1][:25001], "samples before the swap point are kept")
}

func TestCorrectChannelSwapNoSwap(t *testing.T) {
	clock := pulses(swapSamples, 5, 3, frameStarts(0, swapSamples)...)
	data := [][]float64{clock, make([]float64, swapSamples), make([]float64, swapSamples)}

	result, err := paqalign.CorrectChannelSwap(data, swapParams())
	require.NoError(t, err)
	assert.False(t, result.Swapped)
	assert.Equal(t, -1, result.SwapPoint)
	assert.Empty(t, result.Boundaries)
	assert.Equal(t, data, result.Data)
}

func TestCorrectChannelSwapInconclusive(t *testing.T) {
	data := swappedRecording()
	for i := swapAt; i < swapSamples; i++ {
		data[2][i] = 0
	}

	result, err := paqalign.CorrectChannelSwap(data, swapParams())
	assert.ErrorIs(t, err, paqalign.ErrSwapInconclusive)
	require.NotNil(t, result)
	assert.False(t, result.Swapped)
	assert.Equal(t, 25001, result.SwapPoint)
	assert.Equal(t, data, result.Data, "data is left unmodified")
}

func TestCorrectChannelSwapTwoChannels(t *testing.T) {
	data := swappedRecording()[:2]
	_, err := paqalign.CorrectChannelSwap(data, swapParams())
	assert.ErrorIs(t, err, paqalign.ErrSwapInconclusive)
}

func TestCorrectChannelSwapInvalidInput(t *testing.T) {
	row := make([]float64, 10)
	_, err := paqalign.CorrectChannelSwap([][]float64{row, row, row, row}, swapParams())
	assert.ErrorIs(t, err, paqalign.ErrTooManyChannels)

	p := swapParams()
	p.Reference = 3
	_, err = paqalign.CorrectChannelSwap([][]float64{row, row, row}, p)
	assert.ErrorIs(t, err, paqalign.ErrUnknownChannel)

	p = swapParams()
	p.Rate = 0
	_, err = paqalign.CorrectChannelSwap([][]float64{row}, p)
	assert.ErrorIs(t, err, paqalign.ErrBadRate)
}

func TestCorrectSessionSwap(t *testing.T) {
	s := newSession(swapRate, []string{"frame_clock", "reward", "lick"}, swappedRecording()...)

	corrected, result, err := paqalign.CorrectSessionSwap(s, "Frame_Clock", swapParams())
	require.NoError(t, err)
	require.True(t, result.Swapped)
	assert.NotSame(t, s, corrected)
	assert.Equal(t, s.ChannelNames(), corrected.ChannelNames())
	assert.Equal(t, 5.0, corrected.Channels[0].Samples[30025])
	assert.Equal(t, 0.0, s.Channels[0].Samples[30025])

	_, _, err = paqalign.CorrectSessionSwap(s, "missing", swapParams())
	assert.ErrorIs(t, err, paqalign.ErrUnknownChannel)
}
