package paqalign

import (
	"fmt"
	"math"
	"sort"
)

// NoFrame marks an event that could not be placed on the frame clock.
const NoFrame = -1

type TimeUnit int

const (
	Samples TimeUnit = iota
	Seconds
)

func (u TimeUnit) String() string {
	switch u {
	case Samples:
		return "samples"
	case Seconds:
		return "seconds"
	default:
		return "unknown"
	}
}

func ParseTimeUnit(s string) (TimeUnit, error) {
	switch s {
	case "", "samples":
		return Samples, nil
	case "seconds":
		return Seconds, nil
	}
	return Samples, fmt.Errorf("unknown time unit %q", s)
}

// EventTimes are event times on the behaviour clock. Seconds are converted
// to samples with Rate, the sample rate of the device that recorded the
// frame clock.
type EventTimes struct {
	Values []float64
	Unit   TimeUnit
	Rate   int
}

func (e EventTimes) toSamples() ([]float64, error) {
	out := make([]float64, len(e.Values))
	switch e.Unit {
	case Samples:
		copy(out, e.Values)
	case Seconds:
		if e.Rate <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrBadRate, e.Rate)
		}
		for i, v := range e.Values {
			out[i] = math.Round(v * float64(e.Rate))
		}
	default:
		return nil, fmt.Errorf("unknown time unit %d", e.Unit)
	}
	return out, nil
}

// AlignedEvent is one event placed on the frame clock. FrameIndex is the
// position in the clock of the last frame strictly before the event, and
// FrameSample the clock value there. Unmapped events carry NoFrame and NaN.
type AlignedEvent struct {
	Event       float64
	FrameIndex  int
	FrameSample float64
}

func (a AlignedEvent) Mapped() bool {
	return a.FrameIndex != NoFrame
}

type Alignment struct {
	Events []AlignedEvent
}

// FrameIndices returns one entry per input event, NoFrame where unmapped.
func (a *Alignment) FrameIndices() []int {
	out := make([]int, len(a.Events))
	for i, ev := range a.Events {
		out[i] = ev.FrameIndex
	}
	return out
}

// MappedIndices returns the frame indices of mapped events in input order.
func (a *Alignment) MappedIndices() []int {
	out := make([]int, 0, len(a.Events))
	for _, ev := range a.Events {
		if ev.Mapped() {
			out = append(out, ev.FrameIndex)
		}
	}
	return out
}

// Gaps lists the positions of events that could not be mapped.
func (a *Alignment) Gaps() []int {
	out := make([]int, 0)
	for i, ev := range a.Events {
		if !ev.Mapped() {
			out = append(out, i)
		}
	}
	return out
}

func checkClock(frameClock []int) error {
	if len(frameClock) == 0 {
		return ErrEmptyClock
	}
	for i := 1; i < len(frameClock); i++ {
		if frameClock[i] <= frameClock[i-1] {
			return fmt.Errorf("%w: frame %d at %d follows %d", ErrClockNotIncreasing, i, frameClock[i], frameClock[i-1])
		}
	}
	return nil
}

// Reconcile maps every event to the last frame strictly preceding it. An
// event is mappable only when clock[0] < e < clock[last]: events on or
// before the first frame, on or after the last frame, and NaN events map to
// NoFrame. Events are visited in ascending time so the frame pointer only
// moves forward; the output keeps the input order.
func Reconcile(frameClock []int, events EventTimes) (*Alignment, error) {
	if err := checkClock(frameClock); err != nil {
		return nil, err
	}
	times, err := events.toSamples()
	if err != nil {
		return nil, err
	}

	alignment := &Alignment{Events: make([]AlignedEvent, len(times))}
	order := make([]int, 0, len(times))
	for i, t := range times {
		alignment.Events[i] = AlignedEvent{Event: events.Values[i], FrameIndex: NoFrame, FrameSample: math.NaN()}
		if !math.IsNaN(t) {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return times[order[a]] < times[order[b]]
	})

	first := float64(frameClock[0])
	last := float64(frameClock[len(frameClock)-1])
	frame := 0
	for _, i := range order {
		t := times[i]
		if t <= first || t >= last {
			continue
		}
		// Advance while the next frame is still strictly before the event.
		for frame+1 < len(frameClock) && float64(frameClock[frame+1]) < t {
			frame++
		}
		alignment.Events[i].FrameIndex = frame
		alignment.Events[i].FrameSample = float64(frameClock[frame])
	}

	if gaps := alignment.Gaps(); len(gaps) > 0 && configuration.Verbosity > 0 {
		message := fmt.Sprintf("%d of %d events fall outside the frame clock [%d, %d]: %v",
			len(gaps), len(times), frameClock[0], frameClock[len(frameClock)-1], gaps)
		logger.Info(message, "clock")
	}
	return alignment, nil
}

// ExcludeCloseFrames keeps the first frame and every frame more than minGap
// frames after its predecessor, so a burst of stimuli keeps only its first
// one. NoFrame entries are dropped beforehand.
func ExcludeCloseFrames(frames []int, minGap int) []int {
	mapped := make([]int, 0, len(frames))
	for _, f := range frames {
		if f != NoFrame {
			mapped = append(mapped, f)
		}
	}
	out := make([]int, 0, len(mapped))
	for i, f := range mapped {
		if i == 0 || f-mapped[i-1] > minGap {
			out = append(out, f)
		}
	}
	return out
}

// ClosestFrame returns the index of the frame nearest to t, the earlier one
// on a tie.
func ClosestFrame(frameClock []int, t float64) (int, error) {
	if err := checkClock(frameClock); err != nil {
		return NoFrame, err
	}
	if math.IsNaN(t) {
		return NoFrame, nil
	}
	i := sort.Search(len(frameClock), func(k int) bool { return float64(frameClock[k]) >= t })
	switch {
	case i == 0:
		return 0, nil
	case i == len(frameClock):
		return len(frameClock) - 1, nil
	}
	if t-float64(frameClock[i-1]) <= float64(frameClock[i])-t {
		return i - 1, nil
	}
	return i, nil
}
