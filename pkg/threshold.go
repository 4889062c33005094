package paqalign

import (
	"fmt"
	"math"
	"sort"
)

// Limit is an optional numeric parameter. The zero value is unset.
type Limit struct {
	set   bool
	value float64
}

func Unset() Limit { return Limit{} }

func Value(v float64) Limit { return Limit{set: true, value: v} }

// LimitFrom maps an optional JSON field onto a Limit.
func LimitFrom(v *float64) Limit {
	if v == nil {
		return Limit{}
	}
	return Value(*v)
}

func (l Limit) IsSet() bool { return l.set }

func (l Limit) Get() (float64, bool) { return l.value, l.set }

func (l Limit) String() string {
	if !l.set {
		return "unset"
	}
	return fmt.Sprintf("%g", l.value)
}

// DetectParams configures rising-edge detection on one channel. Cutoff, when
// set, rejects samples at or above it so that pulses of a different height
// sharing the line are ignored. Distance, when set, is the minimum number of
// samples between kept events.
type DetectParams struct {
	Threshold float64
	Cutoff    Limit
	Distance  Limit
}

func (p DetectParams) Validate() error {
	if math.IsNaN(p.Threshold) {
		return fmt.Errorf("threshold is NaN")
	}
	if cutoff, ok := p.Cutoff.Get(); ok && !(cutoff > p.Threshold) {
		return fmt.Errorf("%w: threshold %g, cutoff %g", ErrBadThreshold, p.Threshold, cutoff)
	}
	if distance, ok := p.Distance.Get(); ok && !(distance > 0) {
		return fmt.Errorf("%w: %g", ErrBadDistance, distance)
	}
	return nil
}

// ThresholdMask marks the samples above threshold, and below cutoff when one
// is set.
func ThresholdMask(signal []float64, p DetectParams) []bool {
	mask := make([]bool, len(signal))
	cutoff, hasCutoff := p.Cutoff.Get()
	for i, v := range signal {
		mask[i] = v > p.Threshold && (!hasCutoff || v < cutoff)
	}
	return mask
}

// DetectEvents returns the sample indices where the thresholded signal turns
// on. Runs of consecutive above-threshold samples count once, at their first
// sample. A signal that starts above threshold has an event at 0.
func DetectEvents(signal []float64, p DetectParams) []int {
	mask := ThresholdMask(signal, p)
	events := make([]int, 0)
	for i, on := range mask {
		if on && (i == 0 || !mask[i-1]) {
			events = append(events, i)
		}
	}

	distance, ok := p.Distance.Get()
	if !ok || len(events) < 2 {
		return events
	}
	priority := make([]float64, len(events))
	for i, idx := range events {
		priority[i] = signal[idx]
	}
	keep := selectByPeakDistance(events, priority, distance)
	filtered := make([]int, 0, len(events))
	for i, idx := range events {
		if keep[i] {
			filtered = append(filtered, idx)
		}
	}
	return filtered
}

// selectByPeakDistance visits positions from highest to lowest priority and
// flags every not-yet-rejected neighbour closer than distance on either side.
// Equal priorities are visited left to right, so the earlier one survives.
// positions must be ascending.
func selectByPeakDistance(positions []int, priority []float64, distance float64) []bool {
	n := len(positions)
	keep := make([]bool, n)
	for i := range keep {
		keep[i] = true
	}
	minDistance := int(math.Ceil(distance))

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return priority[order[a]] > priority[order[b]]
	})

	for _, j := range order {
		if !keep[j] {
			continue
		}
		for k := j - 1; k >= 0 && positions[j]-positions[k] < minDistance; k-- {
			keep[k] = false
		}
		for k := j + 1; k < n && positions[k]-positions[j] < minDistance; k++ {
			keep[k] = false
		}
	}
	return keep
}

// DetectChannel runs DetectEvents on a named session channel.
func DetectChannel(s *Session, name string, p DetectParams) ([]int, error) {
	ch, err := s.Channel(name)
	if err != nil {
		return nil, err
	}
	events := DetectEvents(ch.Samples, p)
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Channel %s: %d events (threshold %g, cutoff %s, distance %s)",
			ch.Name, len(events), p.Threshold, p.Cutoff, p.Distance)
		logger.Info(message, "detector")
	}
	return events, nil
}
