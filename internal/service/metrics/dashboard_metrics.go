package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Dashboard records latency and domain error codes per dashboard endpoint.
type Dashboard struct {
	latency *prometheus.HistogramVec
	errors  *prometheus.CounterVec
}

func NewDashboard(reg prometheus.Registerer) *Dashboard {
	d := &Dashboard{
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sentidash",
				Subsystem: "dashboard",
				Name:      "latency_seconds",
				Help:      "Latency of dashboard endpoints",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sentidash",
				Subsystem: "dashboard",
				Name:      "errors_total",
				Help:      "Errors by dashboard endpoint and code",
			},
			[]string{"endpoint", "code"},
		),
	}
	if reg != nil {
		reg.MustRegister(d.latency, d.errors)
	}
	return d
}

// Observe records one call to endpoint. An empty code means success.
func (d *Dashboard) Observe(endpoint string, start time.Time, code string) {
	if d == nil {
		return
	}
	d.latency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if code != "" {
		d.errors.WithLabelValues(endpoint, code).Inc()
	}
}
