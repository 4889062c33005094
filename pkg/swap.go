package paqalign

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Rotations the acquisition hardware is known to produce, in the order they
// are tested. Row i of the corrected data takes row rotation[i] after the
// swap point.
var swapRotations = [][]int{{2, 0, 1}, {1, 2, 0}}

// SwapParams configures the channel swap detector. Reference is the row that
// carries the imaging frame clock before the fault.
type SwapParams struct {
	Reference      int
	Rate           int
	ImagingRate    float64
	Percentile     float64
	PeakDistance   int
	Prominence     float64
	DeviationSigma float64
	PulseLevel     float64
	SettleSeconds  float64
	InspectSeconds float64
}

func DefaultSwapParams(reference, rate int, imagingRate float64) SwapParams {
	return SwapParams{
		Reference:      reference,
		Rate:           rate,
		ImagingRate:    imagingRate,
		Percentile:     99.9,
		PeakDistance:   1000,
		Prominence:     1,
		DeviationSigma: 4,
		PulseLevel:     4,
		SettleSeconds:  1,
		InspectSeconds: 3,
	}
}

func (p SwapParams) Validate() error {
	if p.Rate <= 0 {
		return fmt.Errorf("%w: %d", ErrBadRate, p.Rate)
	}
	if !(p.ImagingRate > 0) {
		return fmt.Errorf("imaging rate must be positive, got %g", p.ImagingRate)
	}
	if p.Percentile < 0 || p.Percentile > 100 {
		return fmt.Errorf("percentile must be in [0, 100], got %g", p.Percentile)
	}
	if p.PeakDistance <= 0 {
		return fmt.Errorf("%w: %d", ErrBadDistance, p.PeakDistance)
	}
	if p.SettleSeconds < 0 || !(p.InspectSeconds > 0) {
		return fmt.Errorf("invalid inspection window: settle %g s, inspect %g s", p.SettleSeconds, p.InspectSeconds)
	}
	return nil
}

type SwapResult struct {
	// Data aliases the input rows when no correction was applied.
	Data [][]float64
	// Boundaries are the peaks that follow an anomalous interval.
	Boundaries []int
	Swapped    bool
	SwapPoint  int
	Rotation   []int
}

// percentile interpolates linearly between the closest ranks, the numpy
// default.
func percentile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

// swapBoundaries finds the reference peaks that follow an inter-peak interval
// deviating from the mean by more than DeviationSigma population standard
// deviations.
func swapBoundaries(reference []float64, p SwapParams) []int {
	peaks := FindPeaks(reference, PeakParams{
		Height:     Value(percentile(reference, p.Percentile)),
		Distance:   Value(float64(p.PeakDistance)),
		Prominence: Value(p.Prominence),
	})
	boundaries := make([]int, 0)
	if len(peaks) < 2 {
		return boundaries
	}
	intervals := make([]float64, len(peaks)-1)
	for i := range intervals {
		intervals[i] = float64(peaks[i+1] - peaks[i])
	}
	mean, std := stat.PopMeanStdDev(intervals, nil)
	limit := p.DeviationSigma * std
	for i, interval := range intervals {
		if math.Abs(interval-mean) > limit {
			boundaries = append(boundaries, peaks[i+1])
		}
	}
	return boundaries
}

// CorrectChannelSwap detects a mid-recording rotation of channel identities
// on the reference frame clock and splices the rows back into place. When a
// swap is detected but no known rotation explains it, the data is returned
// unmodified together with ErrSwapInconclusive.
func CorrectChannelSwap(data [][]float64, p SwapParams) (*SwapResult, error) {
	if len(data) > 3 {
		return nil, fmt.Errorf("%w: got %d", ErrTooManyChannels, len(data))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Reference < 0 || p.Reference >= len(data) {
		return nil, fmt.Errorf("%w: reference row %d of %d", ErrUnknownChannel, p.Reference, len(data))
	}

	result := &SwapResult{Data: data, SwapPoint: -1}
	result.Boundaries = swapBoundaries(data[p.Reference], p)
	if len(result.Boundaries) <= 2 {
		if configuration.Verbosity > 0 {
			logger.Info(fmt.Sprintf("No channel swap found (%d anomalous intervals)", len(result.Boundaries)), "swap")
		}
		return result, nil
	}
	swap := result.Boundaries[0]
	result.SwapPoint = swap

	if len(data) < 3 {
		logger.Error(fmt.Sprintf("Channel swap detected at sample %d but only %d channels are recorded", swap, len(data)))
		return result, fmt.Errorf("%w: swap at sample %d", ErrSwapInconclusive, swap)
	}

	start := swap + int(p.SettleSeconds*float64(p.Rate))
	end := start + int(p.InspectSeconds*float64(p.Rate))
	minPulses := p.InspectSeconds * p.ImagingRate
	above := func(v float64) bool { return v > p.PulseLevel }

	for _, rotation := range swapRotations {
		row := data[rotation[p.Reference]]
		lo, hi := min(start, len(row)), min(end, len(row))
		pulses := floats.Count(above, row[lo:hi])
		if float64(pulses) <= minPulses {
			continue
		}
		corrected := make([][]float64, len(data))
		for i := range data {
			corrected[i] = make([]float64, 0, len(data[i]))
			corrected[i] = append(corrected[i], data[i][:swap]...)
			corrected[i] = append(corrected[i], data[rotation[i]][swap:]...)
		}
		result.Data = corrected
		result.Swapped = true
		result.Rotation = rotation
		logger.Info(fmt.Sprintf("Channel swap at sample %d corrected with rotation %v (%d pulses in inspection window)",
			swap, rotation, pulses), "swap")
		return result, nil
	}

	logger.Error(fmt.Sprintf("Channel swap detected at sample %d but no rotation matches, data left unmodified", swap))
	return result, fmt.Errorf("%w: swap at sample %d", ErrSwapInconclusive, swap)
}

// CorrectSessionSwap applies CorrectChannelSwap to a session, using the named
// channel as reference. The input session is left untouched.
func CorrectSessionSwap(s *Session, reference string, p SwapParams) (*Session, *SwapResult, error) {
	idx, err := s.ChannelIndex(reference)
	if err != nil {
		return nil, nil, err
	}
	p.Reference = idx
	p.Rate = s.Rate
	result, err := CorrectChannelSwap(s.Data(), p)
	if err != nil {
		return s, result, err
	}
	if !result.Swapped {
		return s, result, nil
	}
	corrected, err := s.WithData(result.Data)
	if err != nil {
		return nil, nil, err
	}
	return corrected, result, nil
}
