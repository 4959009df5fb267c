package host

import (
	"context"
	"sync"
	"sync/atomic"
)

// Job states. A job moves from pending to exactly one of running or
// abandoned; an abandoned job is never run.
const (
	jobPending int32 = iota
	jobRunning
	jobAbandoned
)

// job is one unit of work for the Run loop.
type job struct {
	kind  string
	ctx   context.Context // the submitter's context
	fn    func(ctx context.Context) (*Result, error)
	done  chan jobResult
	state atomic.Int32
}

// start claims a pending job for the loop.
func (j *job) start() bool {
	return j.state.CompareAndSwap(jobPending, jobRunning)
}

// abandon withdraws a job that has not started yet.
func (j *job) abandon() bool {
	return j.state.CompareAndSwap(jobPending, jobAbandoned)
}

type jobResult struct {
	res *Result
	err error
}

// jobQueue is a thread-safe FIFO queue feeding the Run loop.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop (prevents goroutine hangs on context cancellation).
type jobQueue struct {
	mu     sync.Mutex
	jobs   []*job
	closed bool
	signal chan struct{} // Signals job availability (buffered, size 1)
}

func newJobQueue() *jobQueue {
	return &jobQueue{
		jobs:   make([]*job, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a job to the back of the queue.
// Returns false if the queue is closed.
func (q *jobQueue) Enqueue(j *job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.jobs = append(q.jobs, j)

	// Non-blocking: buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front job without blocking.
func (q *jobQueue) TryDequeue() (*job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return nil, false
	}

	j := q.jobs[0]
	q.jobs[0] = nil // release for GC
	if len(q.jobs) == 1 {
		q.jobs = q.jobs[:0]
	} else {
		q.jobs = q.jobs[1:]
	}
	return j, true
}

// Wait returns a channel that signals when jobs may be available.
// The channel is closed once the queue is closed.
func (q *jobQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *jobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Close stops further enqueues and wakes any waiter.
func (q *jobQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Drain closes the queue and returns every job still waiting.
func (q *jobQueue) Drain() []*job {
	q.Close()

	q.mu.Lock()
	defer q.mu.Unlock()
	pending := q.jobs
	q.jobs = nil
	return pending
}

// ClosedAndEmpty reports whether the queue is closed with nothing left to run.
func (q *jobQueue) ClosedAndEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.jobs) == 0
}
