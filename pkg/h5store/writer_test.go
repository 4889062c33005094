package h5store_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	paqalign "github.com/brainbox-lab/paqalign/pkg"
	"github.com/brainbox-lab/paqalign/pkg/h5store"
)

func TestFluorescenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flu.h5")
	flu := mat.NewDense(3, 4, []float64{
		0, 1, 2, 3,
		10, 11, 12, 13,
		20, 21, 22, 23,
	})
	require.NoError(t, h5store.WriteFluorescence(path, "F", flu))

	read, err := h5store.ReadFluorescence(path, "F")
	require.NoError(t, err)
	assert.True(t, mat.Equal(flu, read))

	_, err = h5store.ReadFluorescence(path, "missing")
	assert.Error(t, err)
	_, err = h5store.ReadFluorescence(filepath.Join(t.TempDir(), "none.h5"), "F")
	assert.Error(t, err)
}

func TestWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aligned.h5")
	writer, err := h5store.NewWriter(path, 4)
	require.NoError(t, err)

	require.NoError(t, writer.WriteRunInfo(h5store.RunInfo{
		RunID:       "0b7f5c1e",
		SessionID:   "m1-s3",
		Rate:        20000,
		ImagingRate: 30,
		NumFrames:   100,
		Created:     time.Now(),
	}))
	require.NoError(t, writer.WriteEvents("frames", []int{10, 20, 30}))
	require.NoError(t, writer.WriteEvents("lick", nil))

	tensor, kept, err := paqalign.SplitTrials(mat.NewDense(2, 50, nil), []int{10, 20, 45}, paqalign.Window{Pre: 5, Post: 5})
	require.NoError(t, err)
	require.NoError(t, writer.WriteTrials("flu", tensor, kept))
	assert.Error(t, writer.WriteTrials("bad", tensor, []int{1}))

	require.NoError(t, writer.Close())

	_, err = h5store.ReadFluorescence(path, "/Trials/flu")
	assert.ErrorContains(t, err, "expected a non-empty [cell][frame] matrix")
}
