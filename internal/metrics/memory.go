// Package metrics collects runtime memory statistics and exports integration
// progress as Prometheus metrics.
package metrics

import "runtime"

// MemorySnapshot holds a point-in-time memory reading.
type MemorySnapshot struct {
	HeapAlloc    uint64 // bytes in use by application
	TotalAlloc   uint64 // cumulative bytes allocated
	HeapSys      uint64 // bytes obtained from OS for heap
	Sys          uint64 // total bytes obtained from OS
	NumGC        uint32 // number of completed GC cycles
	PauseTotalNs uint64 // cumulative GC pause time
	HeapObjects  uint64 // number of allocated heap objects
}

// MemoryDelta is the difference between two snapshots taken around a run.
type MemoryDelta struct {
	Allocated  uint64 // bytes allocated between the snapshots
	GCCycles   uint32 // GC cycles completed between the snapshots
	PauseNs    uint64 // GC pause time between the snapshots
	PeakHeap   uint64 // larger of the two HeapAlloc readings
	SysGrowth  int64  // change in bytes obtained from the OS
	FinalHeap  uint64 // HeapAlloc of the later snapshot
	HeapObject uint64 // live heap objects in the later snapshot
}

// MemoryCollector reads runtime memory statistics.
type MemoryCollector struct{}

// NewMemoryCollector creates a new memory collector.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{}
}

// Snapshot reads current memory statistics.
func (mc *MemoryCollector) Snapshot() MemorySnapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemorySnapshot{
		HeapAlloc:    m.HeapAlloc,
		TotalAlloc:   m.TotalAlloc,
		HeapSys:      m.HeapSys,
		Sys:          m.Sys,
		NumGC:        m.NumGC,
		PauseTotalNs: m.PauseTotalNs,
		HeapObjects:  m.HeapObjects,
	}
}

// Since computes the delta between before and s.
func (s MemorySnapshot) Since(before MemorySnapshot) MemoryDelta {
	peak := s.HeapAlloc
	if before.HeapAlloc > peak {
		peak = before.HeapAlloc
	}
	return MemoryDelta{
		Allocated:  s.TotalAlloc - before.TotalAlloc,
		GCCycles:   s.NumGC - before.NumGC,
		PauseNs:    s.PauseTotalNs - before.PauseTotalNs,
		PeakHeap:   peak,
		SysGrowth:  int64(s.Sys) - int64(before.Sys),
		FinalHeap:  s.HeapAlloc,
		HeapObject: s.HeapObjects,
	}
}
