package pool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics implements Metrics with Prometheus gauges and
// counters under the gomail_pool namespace. The Pool only depends on the
// Metrics interface; this is the optional concrete backing.
type PrometheusMetrics struct {
	liveResources prometheus.Gauge
	queueDepth    prometheus.Gauge
	dispatched    prometheus.Counter
	requeued      prometheus.Counter
	failed        prometheus.Counter
}

// NewPrometheusMetrics registers the pool's gauges/counters with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		liveResources: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "gomail",
			Subsystem: "pool",
			Name:      "live_resources",
			Help:      "Number of live pooled SMTP connections.",
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "gomail",
			Subsystem: "pool",
			Name:      "queue_depth",
			Help:      "Number of messages waiting for a connection.",
		}),
		dispatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gomail",
			Subsystem: "pool",
			Name:      "dispatched_total",
			Help:      "Total messages that reached a terminal (non-requeue) outcome without an error.",
		}),
		requeued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gomail",
			Subsystem: "pool",
			Name:      "requeued_total",
			Help:      "Total messages requeued after a connection-level failure.",
		}),
		failed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gomail",
			Subsystem: "pool",
			Name:      "failed_total",
			Help:      "Total messages whose terminal outcome was an error.",
		}),
	}
}

func (m *PrometheusMetrics) SetLiveResources(n int) { m.liveResources.Set(float64(n)) }
func (m *PrometheusMetrics) SetQueueDepth(n int)    { m.queueDepth.Set(float64(n)) }
func (m *PrometheusMetrics) IncDispatched()         { m.dispatched.Inc() }
func (m *PrometheusMetrics) IncRequeued()           { m.requeued.Inc() }
func (m *PrometheusMetrics) IncFailed()             { m.failed.Inc() }
