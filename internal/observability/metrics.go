package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the sending pipeline. The
// pool registers its own collectors separately (pool.NewPrometheusMetrics)
// against the same registry.
type Metrics struct {
	SendsTotal   *prometheus.CounterVec
	SendDuration prometheus.Histogram
	MessageBytes prometheus.Histogram
}

// NewMetrics creates and registers all collectors with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SendsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gomail",
			Subsystem: "mailer",
			Name:      "sends_total",
			Help:      "Total SendMail calls by outcome.",
		}, []string{"status"}),
		SendDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gomail",
			Subsystem: "mailer",
			Name:      "send_duration_seconds",
			Help:      "End-to-end time for one SendMail call (compose through transport).",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		MessageBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gomail",
			Subsystem: "mailer",
			Name:      "message_bytes",
			Help:      "Serialised message size in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),
	}
}

// ObserveSend records one completed SendMail call.
func (m *Metrics) ObserveSend(status string, seconds float64, messageBytes int) {
	m.SendsTotal.WithLabelValues(status).Inc()
	m.SendDuration.Observe(seconds)
	if messageBytes > 0 {
		m.MessageBytes.Observe(float64(messageBytes))
	}
}
