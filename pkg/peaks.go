package paqalign

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// PeakParams mirrors the subset of scipy's find_peaks used on frame clock
// channels. Filters are applied in the order height, distance, prominence.
type PeakParams struct {
	Height     Limit
	Distance   Limit
	Prominence Limit
}

// localMaxima finds strict local maxima. Flat tops report their midpoint,
// rounded down.
func localMaxima(x []float64) []int {
	peaks := make([]int, 0)
	n := len(x)
	i := 1
	for i < n-1 {
		if x[i-1] < x[i] {
			ahead := i + 1
			for ahead < n-1 && x[ahead] == x[i] {
				ahead++
			}
			if x[ahead] < x[i] {
				left := i
				right := ahead - 1
				peaks = append(peaks, (left+right)/2)
				i = ahead
			}
		}
		i++
	}
	return peaks
}

// Prominences computes, for every peak, its height above the higher of the
// two lowest points reached before the signal rises above the peak on either
// side.
// A scan stops early once it reaches the global minimum.
func Prominences(x []float64, peaks []int) []float64 {
	out := make([]float64, len(peaks))
	if len(peaks) == 0 {
		return out
	}
	floor := floats.Min(x)
	for p, peak := range peaks {
		top := x[peak]

		leftMin := top
		for i := peak; i >= 0 && x[i] <= top && leftMin > floor; i-- {
			if x[i] < leftMin {
				leftMin = x[i]
			}
		}
		rightMin := top
		for i := peak; i < len(x) && x[i] <= top && rightMin > floor; i++ {
			if x[i] < rightMin {
				rightMin = x[i]
			}
		}
		out[p] = top - math.Max(leftMin, rightMin)
	}
	return out
}

func FindPeaks(x []float64, p PeakParams) []int {
	peaks := localMaxima(x)

	if height, ok := p.Height.Get(); ok {
		kept := peaks[:0]
		for _, peak := range peaks {
			if x[peak] >= height {
				kept = append(kept, peak)
			}
		}
		peaks = kept
	}

	if distance, ok := p.Distance.Get(); ok && len(peaks) > 1 {
		priority := make([]float64, len(peaks))
		for i, peak := range peaks {
			priority[i] = x[peak]
		}
		keep := selectByPeakDistance(peaks, priority, distance)
		kept := make([]int, 0, len(peaks))
		for i, peak := range peaks {
			if keep[i] {
				kept = append(kept, peak)
			}
		}
		peaks = kept
	}

	if minProminence, ok := p.Prominence.Get(); ok {
		prominences := Prominences(x, peaks)
		kept := make([]int, 0, len(peaks))
		for i, peak := range peaks {
			if prominences[i] >= minProminence {
				kept = append(kept, peak)
			}
		}
		peaks = kept
	}
	return peaks
}
