package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the host.
// Tracks invocations per entry point, spawn outcomes, replies, and
// transaction latency.
type Metrics struct {
	Invocations         *prometheus.CounterVec
	Spawns              *prometheus.CounterVec
	Replies             *prometheus.CounterVec
	TransactionDuration *prometheus.HistogramVec
	QueueDepth          prometheus.Gauge
	BlockHeight         prometheus.Gauge
}

// New creates a Metrics instance registered with reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Invocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "factory_host_invocations_total",
			Help: "Entry-point invocations by entry and outcome",
		}, []string{"entry", "outcome"}),
		Spawns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "factory_host_spawns_total",
			Help: "Child instantiations requested through submessages, by outcome",
		}, []string{"outcome"}),
		Replies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "factory_host_replies_total",
			Help: "Submessage replies delivered, by result",
		}, []string{"result"}),
		TransactionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "factory_host_transaction_duration_seconds",
			Help:    "Duration of host transactions from dequeue to commit",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"kind"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "factory_host_queue_depth",
			Help: "Jobs waiting for the host's writer loop",
		}),
		BlockHeight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "factory_host_block_height",
			Help: "Height of the last committed block",
		}),
	}
}

// ObserveInvocation records one entry-point call.
func (m *Metrics) ObserveInvocation(entry string, err error) {
	m.Invocations.WithLabelValues(entry, outcome(err)).Inc()
}

// ObserveSpawn records one submessage instantiation.
func (m *Metrics) ObserveSpawn(err error) {
	m.Spawns.WithLabelValues(outcome(err)).Inc()
}

// ObserveReply records one reply delivery.
func (m *Metrics) ObserveReply(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.Replies.WithLabelValues(result).Inc()
}

// ObserveTransaction records the duration of a host transaction.
// Call with time.Now() at the start of the transaction.
func (m *Metrics) ObserveTransaction(kind string, start time.Time) {
	m.TransactionDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// SetQueueDepth reports the current job queue length.
func (m *Metrics) SetQueueDepth(n int) {
	m.QueueDepth.Set(float64(n))
}

// SetBlockHeight reports the last committed height.
func (m *Metrics) SetBlockHeight(h uint64) {
	m.BlockHeight.Set(float64(h))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
