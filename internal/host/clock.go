package host

import (
	"sync/atomic"
	"time"
)

// Clock is a monotonic logical clock for invocation log ordering.
//
// Every logged invocation is stamped with a strictly increasing seq from
// this clock, so log order never depends on wall time.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// BlockClock supplies block timestamps.
type BlockClock interface {
	Now() time.Time
}

// SystemClock stamps blocks with wall time truncated to the second.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
