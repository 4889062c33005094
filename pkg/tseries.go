package paqalign

import (
	"fmt"
	"math"
)

// TseriesParams: a gap longer than GapSeconds splits acquisitions, and a
// block may carry up to BonusLimit trailing frames from false triggers.
type TseriesParams struct {
	Rate       int
	GapSeconds float64
	BonusLimit int
}

func DefaultTseriesParams(rate int) TseriesParams {
	return TseriesParams{Rate: rate, GapSeconds: 1, BonusLimit: 20}
}

func (p TseriesParams) Validate() error {
	if p.Rate <= 0 {
		return fmt.Errorf("%w: %d", ErrBadRate, p.Rate)
	}
	if !(p.GapSeconds > 0) {
		return fmt.Errorf("gap must be positive, got %g s", p.GapSeconds)
	}
	if p.BonusLimit < 0 {
		return fmt.Errorf("bonus frame limit must be non-negative, got %d", p.BonusLimit)
	}
	return nil
}

// TseriesBlock describes one gap-delimited chunk of the frame clock. Start
// and End index the raw clock, End exclusive. Expected is the matched
// tseries length, or 0 when the chunk was not recognised.
type TseriesBlock struct {
	Start    int
	End      int
	Expected int
	Tseries  int
	Matched  bool
}

func (b TseriesBlock) Size() int { return b.End - b.Start }

func (b TseriesBlock) Bonus() int {
	if !b.Matched {
		return 0
	}
	return b.Size() - b.Expected
}

type TseriesResult struct {
	Frames []int
	Blocks []TseriesBlock
	// Missing lists the expected entries no chunk was matched to.
	Missing   []int
	Shortfall int
	// Culprit is the only expected entry whose length equals Shortfall, or
	// -1 when there is none or more than one.
	Culprit int
}

// splitChunks cuts the clock wherever consecutive frames are further apart
// than maxGap samples.
func splitChunks(frameClock []int, maxGap float64) []TseriesBlock {
	blocks := make([]TseriesBlock, 0)
	if len(frameClock) == 0 {
		return blocks
	}
	start := 0
	for i := 1; i < len(frameClock); i++ {
		if float64(frameClock[i]-frameClock[i-1]) > maxGap {
			blocks = append(blocks, TseriesBlock{Start: start, End: i, Tseries: -1})
			start = i
		}
	}
	return append(blocks, TseriesBlock{Start: start, End: len(frameClock), Tseries: -1})
}

// FindTseries keeps the frames of the clock that belong to the expected
// tseries. Chunks are matched in order; a chunk matches tseries k when its
// size is within [expected[k], expected[k]+BonusLimit]. Only the first
// expected[k] frames of a matched chunk are kept.
func FindTseries(frameClock []int, expected []int, p TseriesParams) (*TseriesResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := checkClock(frameClock); err != nil {
		return nil, err
	}
	for k, n := range expected {
		if n <= 0 {
			return nil, fmt.Errorf("expected tseries %d has non-positive length %d", k, n)
		}
	}

	blocks := splitChunks(frameClock, p.GapSeconds*float64(p.Rate))
	result := &TseriesResult{Frames: make([]int, 0), Blocks: blocks, Missing: make([]int, 0), Culprit: -1}
	matched := make([]bool, len(expected))

	next := 0
	for b := range blocks {
		size := blocks[b].Size()
		for k := next; k < len(expected); k++ {
			if size >= expected[k] && size <= expected[k]+p.BonusLimit {
				blocks[b].Matched = true
				blocks[b].Expected = expected[k]
				blocks[b].Tseries = k
				matched[k] = true
				next = k + 1
				break
			}
		}
		if blocks[b].Matched {
			start := blocks[b].Start
			result.Frames = append(result.Frames, frameClock[start:start+blocks[b].Expected]...)
		}
		if configuration.Verbosity > 1 {
			message := fmt.Sprintf("Chunk %d: frames [%d, %d), size %d, tseries %d, bonus %d",
				b, blocks[b].Start, blocks[b].End, size, blocks[b].Tseries, blocks[b].Bonus())
			logger.Info(message, "tseries")
		}
	}

	total := 0
	for k, n := range expected {
		total += n
		if !matched[k] {
			result.Missing = append(result.Missing, k)
		}
	}
	result.Shortfall = total - len(result.Frames)
	if result.Shortfall > 0 {
		result.Culprit = shortfallCulprit(expected, result.Shortfall)
		message := fmt.Sprintf("found %d of %d expected tseries frames, missing tseries %v, shortfall %d matches tseries %d",
			len(result.Frames), total, result.Missing, result.Shortfall, result.Culprit)
		logger.Error(message)
	}
	return result, nil
}

func shortfallCulprit(expected []int, shortfall int) int {
	culprit := -1
	for k, n := range expected {
		if n == shortfall {
			if culprit != -1 {
				return -1
			}
			culprit = k
		}
	}
	return culprit
}

// Seconds converts clock samples to seconds.
func (p TseriesParams) Seconds(samples int) float64 {
	return float64(samples) / float64(p.Rate)
}

// FrameRate estimates the imaging rate of a block from its mean
// interval. Returns NaN for blocks shorter than two frames.
func (r *TseriesResult) FrameRate(frameClock []int, block int, rate int) float64 {
	b := r.Blocks[block]
	if b.Size() < 2 {
		return math.NaN()
	}
	span := frameClock[b.End-1] - frameClock[b.Start]
	return float64(b.Size()-1) * float64(rate) / float64(span)
}
