package paqalign

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	ImagingFramesSuffix = "_imaging_frames.txt"
	RewardFramesSuffix  = "_reward_frames.txt"
)

// FramesFilename replaces the extension of source with suffix.
func FramesFilename(source, suffix string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + suffix
}

// WriteFrameIndices writes one index per line, without a trailing newline.
func WriteFrameIndices(path string, frames []int) error {
	file, err := os.Create(path)
	if err != nil {
		return &ErrOpenFile{Filename: path, Err: err}
	}
	w := bufio.NewWriter(file)
	for i, f := range frames {
		if i > 0 {
			w.WriteByte('\n')
		}
		w.WriteString(strconv.Itoa(f))
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return file.Close()
}

func ReadFrameIndices(path string) ([]int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &ErrOpenFile{Filename: path, Err: err}
	}
	defer file.Close()

	frames := make([]int, 0)
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		f, err := strconv.Atoi(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		frames = append(frames, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return frames, nil
}

// ExtractParams selects the channels exported by ExtractFrames. An empty
// ImagingChannel skips the imaging export.
type ExtractParams struct {
	ImagingChannel string
	RewardChannel  string
	Threshold      float64
}

func DefaultExtractParams() ExtractParams {
	return ExtractParams{
		ImagingChannel: "frame_clock",
		RewardChannel:  "reward",
		Threshold:      2.5,
	}
}

type FrameExtraction struct {
	Imaging     []int
	Reward      []int
	ImagingFile string
	RewardFile  string
}

// risingEdges marks samples above threshold whose predecessor is strictly
// below it. A sample sitting exactly at threshold never starts an edge, and
// a channel that is high when recording starts has no event at 0.
func risingEdges(samples []float64, threshold float64) []int {
	events := make([]int, 0)
	for i := 1; i < len(samples); i++ {
		if samples[i-1] < threshold && samples[i] > threshold {
			events = append(events, i)
		}
	}
	return events
}

// ExtractFrames detects the rising edges of the imaging and reward channels
// and writes them next to the session file.
func ExtractFrames(s *Session, p ExtractParams) (*FrameExtraction, error) {
	if s.Path == "" {
		return nil, fmt.Errorf("session has no source path")
	}
	out := &FrameExtraction{}

	if p.ImagingChannel != "" {
		ch, err := s.Channel(p.ImagingChannel)
		if err != nil {
			return nil, err
		}
		out.Imaging = risingEdges(ch.Samples, p.Threshold)
		out.ImagingFile = FramesFilename(s.Path, ImagingFramesSuffix)
		if err := WriteFrameIndices(out.ImagingFile, out.Imaging); err != nil {
			return nil, err
		}
		logger.Info(fmt.Sprintf("Saved file: %s (%d frames)", out.ImagingFile, len(out.Imaging)), "frames")
	}

	ch, err := s.Channel(p.RewardChannel)
	if err != nil {
		return nil, err
	}
	out.Reward = risingEdges(ch.Samples, p.Threshold)
	out.RewardFile = FramesFilename(s.Path, RewardFramesSuffix)
	if err := WriteFrameIndices(out.RewardFile, out.Reward); err != nil {
		return nil, err
	}
	logger.Info(fmt.Sprintf("Saved file: %s (%d rewards)", out.RewardFile, len(out.Reward)), "frames")
	return out, nil
}
