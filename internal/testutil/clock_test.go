package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicClock_StartsAtEpoch(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, DefaultEpoch, clock.Now())
	assert.Equal(t, int64(1), clock.Ticks())
}

func TestDeterministicClock_AdvancesByStep(t *testing.T) {
	clock := NewDeterministicClock()

	first := clock.Now()
	second := clock.Now()
	third := clock.Now()

	assert.Equal(t, DefaultBlockInterval, second.Sub(first))
	assert.Equal(t, DefaultBlockInterval, third.Sub(second))
}

func TestDeterministicClock_CustomEpoch(t *testing.T) {
	epoch := time.Unix(1_700_000_000, 0)
	clock := NewDeterministicClockAt(epoch, time.Minute)

	assert.Equal(t, int64(1_700_000_000), clock.Now().Unix())
	assert.Equal(t, int64(1_700_000_060), clock.Now().Unix())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock()
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, int64(0), clock.Ticks())
	assert.Equal(t, DefaultEpoch, clock.Now())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	clock := NewDeterministicClock()
	const numGoroutines = 50
	const callsPerGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make([][]time.Time, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		results[i] = make([]time.Time, callsPerGoroutine)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				results[idx][j] = clock.Now()
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, row := range results {
		for _, ts := range row {
			require.False(t, seen[ts.Unix()], "duplicate timestamp %s", ts)
			seen[ts.Unix()] = true
		}
	}
	assert.Len(t, seen, numGoroutines*callsPerGoroutine)
}
