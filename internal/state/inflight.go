// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package state holds the small concurrency primitives shared by the worker
// pool and the executor.
package state

import (
	"sync/atomic"
)

// InFlightCounter counts units of work that have been handed out but not yet
// collected. It is safe for concurrent use.
type InFlightCounter struct {
	v atomic.Int64
}

// Increment increments the counter and returns true if it was zero before.
func (c *InFlightCounter) Increment() bool {
	return c.v.Add(1) == 1
}

// IncrementIfUnder increments the counter and returns true if the incremented
// value is at most limit. Otherwise it returns false and leaves the counter
// as it was.
func (c *InFlightCounter) IncrementIfUnder(limit int) bool {
	// Tentatively increment and check against limit. If over, back the
	// increment out and retry only if another goroutine made room in the
	// meantime.
	for c.v.Add(1) > int64(limit) {
		if c.v.Add(-1) >= int64(limit) {
			return false
		}
	}
	return true
}

// Decrement decrements the counter and returns true if it reached zero. It
// panics if the counter would go negative.
func (c *InFlightCounter) Decrement() bool {
	newValue := c.v.Add(-1)
	if newValue < 0 {
		panic("there were no tasks in flight")
	}
	return newValue == 0
}

// Sub removes n from the counter and returns true if it reached zero.
func (c *InFlightCounter) Sub(n int) bool {
	newValue := c.v.Add(-int64(n))
	if newValue < 0 {
		panic("there were no tasks in flight")
	}
	return newValue == 0
}

// Load returns the current count.
func (c *InFlightCounter) Load() int {
	return int(c.v.Load())
}

// GreaterThanZero reports whether anything is in flight.
func (c *InFlightCounter) GreaterThanZero() bool {
	return c.v.Load() > 0
}
