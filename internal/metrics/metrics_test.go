package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveInvocation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveInvocation("execute", nil)
	m.ObserveInvocation("execute", nil)
	m.ObserveInvocation("execute", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Invocations.WithLabelValues("execute", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Invocations.WithLabelValues("execute", "error")))
}

func TestObserveSpawnAndReply(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveSpawn(errors.New("rejected"))
	m.ObserveReply(false)
	m.ObserveReply(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Spawns.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Replies.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Replies.WithLabelValues("error")))
}

func TestGauges(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetQueueDepth(3)
	m.SetBlockHeight(42)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.QueueDepth))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.BlockHeight))
}

func TestObserveTransaction(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveTransaction("execute", time.Now())

	n, err := testutil.GatherAndCount(reg, "factory_host_transaction_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNew_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
