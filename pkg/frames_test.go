package paqalign_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paqalign "github.com/brainbox-lab/paqalign/pkg"
)

func TestFramesFilename(t *testing.T) {
	assert.Equal(t, "/data/m1/session_imaging_frames.txt",
		paqalign.FramesFilename("/data/m1/session.paq", paqalign.ImagingFramesSuffix))
	assert.Equal(t, "session_reward_frames.txt",
		paqalign.FramesFilename("session", paqalign.RewardFramesSuffix))
}

func TestFrameIndicesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.txt")
	require.NoError(t, paqalign.WriteFrameIndices(path, []int{1, 2, 3}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3", string(content))

	frames, err := paqalign.ReadFrameIndices(path)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, frames)

	require.NoError(t, os.WriteFile(path, []byte("4\n\n5\n"), 0o644))
	frames, err = paqalign.ReadFrameIndices(path)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, frames)

	require.NoError(t, os.WriteFile(path, []byte("4\nfive\n"), 0o644))
	_, err = paqalign.ReadFrameIndices(path)
	assert.ErrorContains(t, err, ":2:")
}

func TestExtractFrames(t *testing.T) {
	clock := pulses(40, 5, 2, 0, 10, 20)
	reward := pulses(40, 3, 4, 15)
	s := newSession(1000, []string{"frame_clock", "reward"}, clock, reward)
	s.Path = filepath.Join(t.TempDir(), "session.paq")

	out, err := paqalign.ExtractFrames(s, paqalign.DefaultExtractParams())
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20}, out.Imaging, "a line high at the first sample has no event there")
	assert.Equal(t, []int{15}, out.Reward)

	frames, err := paqalign.ReadFrameIndices(out.ImagingFile)
	require.NoError(t, err)
	assert.Equal(t, out.Imaging, frames)
	rewards, err := paqalign.ReadFrameIndices(out.RewardFile)
	require.NoError(t, err)
	assert.Equal(t, out.Reward, rewards)
}

func TestExtractFramesStrictCrossing(t *testing.T) {
	reward := []float64{0, 2.5, 5, 0, 5, 2.5, 2.5, 3}
	s := newSession(1000, []string{"reward"}, reward)
	s.Path = filepath.Join(t.TempDir(), "strict.paq")

	p := paqalign.DefaultExtractParams()
	p.ImagingChannel = ""
	out, err := paqalign.ExtractFrames(s, p)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, out.Reward, "a rise from exactly the threshold is not an edge")
}

func TestExtractFramesRewardOnly(t *testing.T) {
	s := newSession(1000, []string{"reward"}, pulses(20, 5, 1, 3, 9))
	s.Path = filepath.Join(t.TempDir(), "rewards.paq")

	p := paqalign.DefaultExtractParams()
	p.ImagingChannel = ""
	out, err := paqalign.ExtractFrames(s, p)
	require.NoError(t, err)
	assert.Empty(t, out.ImagingFile)
	assert.Equal(t, []int{3, 9}, out.Reward)
	assert.NoFileExists(t, paqalign.FramesFilename(s.Path, paqalign.ImagingFramesSuffix))
}

func TestExtractFramesErrors(t *testing.T) {
	s := newSession(1000, []string{"reward"}, pulses(20, 5, 1, 3))
	_, err := paqalign.ExtractFrames(s, paqalign.DefaultExtractParams())
	assert.ErrorContains(t, err, "no source path")

	s.Path = filepath.Join(t.TempDir(), "session.paq")
	_, err = paqalign.ExtractFrames(s, paqalign.DefaultExtractParams())
	assert.ErrorIs(t, err, paqalign.ErrUnknownChannel)
}
