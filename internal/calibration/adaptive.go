// This file generates the worker counts timed by calibration.

package calibration

import (
	"runtime"
	"sort"

	"github.com/agbru/integcalc/internal/config"
)

// ─────────────────────────────────────────────────────────────────────────────
// Candidate Worker Counts
// ─────────────────────────────────────────────────────────────────────────────

// GenerateWorkerCandidates returns the worker counts to time, in ascending
// order: 1 (sequential), the powers of two below the CPU count, the CPU
// count itself and the heuristic estimate.
//
// Oversubscribing a CPU-bound kernel only adds scheduling overhead, so no
// candidate exceeds the number of logical CPUs.
func GenerateWorkerCandidates() []int {
	return workerCandidates(runtime.NumCPU(), false)
}

// GenerateQuickWorkerCandidates returns a reduced set: sequential, half the
// CPUs and all of them.
func GenerateQuickWorkerCandidates() []int {
	return workerCandidates(runtime.NumCPU(), true)
}

func workerCandidates(numCPU int, quick bool) []int {
	if numCPU <= 1 {
		return []int{1}
	}
	set := map[int]bool{1: true, numCPU: true}
	if quick {
		set[numCPU/2] = true
	} else {
		for w := 2; w < numCPU; w *= 2 {
			set[w] = true
		}
		if est := config.EstimateOptimalWorkers(); est <= numCPU {
			set[est] = true
		}
	}
	out := make([]int, 0, len(set))
	for w := range set {
		if w >= 1 {
			out = append(out, w)
		}
	}
	sort.Ints(out)
	return out
}
