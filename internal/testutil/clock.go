package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is the first block time a DeterministicClock reports.
var DefaultEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// DefaultBlockInterval is the spacing between consecutive block times.
const DefaultBlockInterval = 5 * time.Second

// DeterministicClock is a block clock for tests: each call to Now returns
// the next timestamp in a fixed arithmetic sequence.
//
// Unlike host.SystemClock, DeterministicClock can be reset for test reuse.
// This enables the same scenario to run multiple times with identical labels.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	epoch time.Time
	step  time.Duration
	ticks int64
}

// NewDeterministicClock creates a clock starting at DefaultEpoch and
// advancing DefaultBlockInterval per call.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockAt(DefaultEpoch, DefaultBlockInterval)
}

// NewDeterministicClockAt creates a clock with a custom epoch and step.
func NewDeterministicClockAt(epoch time.Time, step time.Duration) *DeterministicClock {
	return &DeterministicClock{epoch: epoch.UTC(), step: step}
}

// Now returns the next timestamp. The first call returns the epoch.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.epoch.Add(time.Duration(c.ticks) * c.step)
	c.ticks++
	return t
}

// Ticks returns how many timestamps have been handed out.
func (c *DeterministicClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Reset rewinds the clock so the next call to Now returns the epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
