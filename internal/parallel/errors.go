// Package parallel provides the small fan-out/join primitives shared by the
// integrator: a first-error collector and a spawn-and-join loop.
package parallel

import (
	"sync"
)

// ErrorCollector records the first non-nil error reported by any goroutine.
// The zero value is ready to use.
type ErrorCollector struct {
	mu  sync.Mutex
	err error
}

// SetError stores err if it is the first non-nil error seen. Nil is ignored.
func (c *ErrorCollector) SetError(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

// Err returns the collected error, or nil.
func (c *ErrorCollector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
