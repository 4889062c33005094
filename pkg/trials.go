package paqalign

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Window is the number of frames kept before and after each anchor. The
// anchor frame itself is the first post frame.
type Window struct {
	Pre  int
	Post int
}

func (w Window) Len() int { return w.Pre + w.Post }

func (w Window) Validate() error {
	if w.Pre < 0 || w.Post < 0 || w.Pre+w.Post <= 0 {
		return fmt.Errorf("%w: pre %d, post %d", ErrBadWindow, w.Pre, w.Post)
	}
	return nil
}

// Fits reports whether the window around anchor lies inside numFrames.
func (w Window) Fits(anchor, numFrames int) bool {
	return anchor-w.Pre >= 0 && anchor+w.Post < numFrames
}

// Tensor is a dense [cell][time][trial] block stored row-major.
type Tensor struct {
	Cells  int
	Time   int
	Trials int
	Data   []float64
}

func NewTensor(cells, time, trials int) *Tensor {
	return &Tensor{Cells: cells, Time: time, Trials: trials, Data: make([]float64, cells*time*trials)}
}

func (t *Tensor) index(cell, step, trial int) int {
	return (cell*t.Time+step)*t.Trials + trial
}

func (t *Tensor) At(cell, step, trial int) float64 {
	return t.Data[t.index(cell, step, trial)]
}

func (t *Tensor) Set(cell, step, trial int, v float64) {
	t.Data[t.index(cell, step, trial)] = v
}

func (t *Tensor) Shape() (int, int, int) {
	return t.Cells, t.Time, t.Trials
}

// Trial returns a [cell][time] copy of one trial, nil for an empty tensor.
func (t *Tensor) Trial(trial int) *mat.Dense {
	if t.Cells == 0 || t.Time == 0 {
		return nil
	}
	out := mat.NewDense(t.Cells, t.Time, nil)
	for c := 0; c < t.Cells; c++ {
		for s := 0; s < t.Time; s++ {
			out.Set(c, s, t.At(c, s, trial))
		}
	}
	return out
}

// MeanOverTrials averages every (cell, time) position across trials. A
// tensor without trials yields nil.
func (t *Tensor) MeanOverTrials() *mat.Dense {
	if t.Trials == 0 || t.Cells == 0 || t.Time == 0 {
		return nil
	}
	out := mat.NewDense(t.Cells, t.Time, nil)
	for c := 0; c < t.Cells; c++ {
		for s := 0; s < t.Time; s++ {
			sum := 0.0
			for k := 0; k < t.Trials; k++ {
				sum += t.At(c, s, k)
			}
			out.Set(c, s, sum/float64(t.Trials))
		}
	}
	return out
}

// SplitTrials cuts a [cell][frame] matrix into one window per anchor. Anchors
// whose window would leave the recording are skipped; the anchors that were
// kept are returned in input order alongside the tensor.
func SplitTrials(flu mat.Matrix, anchors []int, w Window) (*Tensor, []int, error) {
	if err := w.Validate(); err != nil {
		return nil, nil, err
	}
	cells, numFrames := flu.Dims()

	kept := make([]int, 0, len(anchors))
	for _, a := range anchors {
		if w.Fits(a, numFrames) {
			kept = append(kept, a)
		}
	}
	if skipped := len(anchors) - len(kept); skipped > 0 && configuration.Verbosity > 0 {
		message := fmt.Sprintf("Skipped %d of %d trials whose window [-%d, +%d) leaves the %d recorded frames",
			skipped, len(anchors), w.Pre, w.Post, numFrames)
		logger.Info(message, "trials")
	}

	tensor := NewTensor(cells, w.Len(), len(kept))
	for k, a := range kept {
		start := a - w.Pre
		for c := 0; c < cells; c++ {
			for s := 0; s < w.Len(); s++ {
				tensor.Set(c, s, k, flu.At(c, start+s))
			}
		}
	}
	return tensor, kept, nil
}

// SplitTrace is SplitTrials for a single cell.
func SplitTrace(trace []float64, anchors []int, w Window) (*Tensor, []int, error) {
	if len(trace) == 0 {
		if err := w.Validate(); err != nil {
			return nil, nil, err
		}
		return NewTensor(1, w.Len(), 0), []int{}, nil
	}
	return SplitTrials(mat.NewDense(1, len(trace), trace), anchors, w)
}
