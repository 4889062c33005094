package paqalign

import (
	"math"
	"sort"
)

// BinLicks groups lick samples by trial. Trial i collects the licks in
// [start_i, start_i+1], both ends inclusive, relative to start_i; the last
// trial has no upper bound. A lick on a boundary is counted in both trials.
func BinLicks(licks []int, trialStarts []float64) [][]float64 {
	binned := make([][]float64, len(trialStarts))
	for i, start := range trialStarts {
		end := math.Inf(1)
		if i+1 < len(trialStarts) {
			end = trialStarts[i+1]
		}
		first := sort.Search(len(licks), func(k int) bool { return float64(licks[k]) >= start })
		trial := make([]float64, 0)
		for k := first; k < len(licks) && float64(licks[k]) <= end; k++ {
			trial = append(trial, float64(licks[k])-start)
		}
		binned[i] = trial
	}
	return binned
}

// ScrubRewardLicks drops, on every trial with a finite reward offset, the
// first lick after the reward when it lands within window samples of it.
// Reward delivery bleeds into the lick sensor on some rigs.
func ScrubRewardLicks(binned [][]float64, rewardOffsets []float64, window float64) [][]float64 {
	out := make([][]float64, len(binned))
	for i, trial := range binned {
		out[i] = append(make([]float64, 0, len(trial)), trial...)
		if i >= len(rewardOffsets) || math.IsNaN(rewardOffsets[i]) || math.IsInf(rewardOffsets[i], 0) {
			continue
		}
		reward := rewardOffsets[i]
		for k, lick := range trial {
			if lick > reward {
				if lick < reward+window {
					out[i] = append(out[i][:k], out[i][k+1:]...)
				}
				break
			}
		}
	}
	return out
}

// LickCounts returns the number of licks per trial.
func LickCounts(binned [][]float64) []int {
	counts := make([]int, len(binned))
	for i, trial := range binned {
		counts[i] = len(trial)
	}
	return counts
}
