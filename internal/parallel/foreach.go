package parallel

import (
	"fmt"
	"sync"
)

// ForEach starts exactly n goroutines, calling fn(i) for i in [0, n), and
// waits for all of them before returning. There is no pool: every call
// spawns fresh goroutines and joins them.
//
// A panic inside fn is recovered and reported as that worker's error. The
// first error wins; the others are dropped.
//
// Parameters:
//   - n: The number of workers to spawn.
//   - fn: The per-worker body. It receives its worker index.
//
// Returns:
//   - error: The first error reported by any worker, or nil.
func ForEach(n int, fn func(i int) error) error {
	var (
		wg sync.WaitGroup
		ec ErrorCollector
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					ec.SetError(fmt.Errorf("worker %d panicked: %v", idx, r))
				}
			}()
			ec.SetError(fn(idx))
		}(i)
	}
	wg.Wait()
	return ec.Err()
}
