package config

import "runtime"

// Worker count resolution chain (highest priority first):
//   1. CLI flags (--workers, --threads)
//   2. Environment variable INTEGCALC_WORKERS
//   3. Config file (threads)
//   4. Cached calibration profile (~/.integcalc_calibration.json)
//   5. Quick calibration when --auto-calibrate is set
//   6. Hardware estimation (this file)

// ApplyAdaptiveWorkers fills in Workers from the CPU count when it is still
// zero ("auto"). Explicit values are preserved.
func ApplyAdaptiveWorkers(cfg AppConfig) AppConfig {
	if cfg.Workers == 0 {
		cfg.Workers = EstimateOptimalWorkers()
	}
	return cfg
}

// EstimateOptimalWorkers provides a heuristic worker count without running
// benchmarks. The kernel is CPU bound and allocation free, so one worker per
// logical CPU is the starting point; very wide machines are capped because
// each level spawns and joins all workers.
func EstimateOptimalWorkers() int {
	numCPU := runtime.NumCPU()

	switch {
	case numCPU <= 1:
		return 1
	case numCPU <= 16:
		return numCPU
	case numCPU <= 64:
		return 16 + (numCPU-16)/2
	default:
		return 40
	}
}
