// Package metrics counts the lookups of the NSS module with Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ubuntu/decorate"
	"github.com/ubuntu/nss-sql/internal/nss"
)

const namespace = "nss_sql"

// Observer records the outcome of every lookup. It implements [nss.Observer].
type Observer struct {
	registry *prometheus.Registry
	lookups  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New returns an Observer registering its collectors in a new registry.
func New() *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Number of NSS calls, by operation and status.",
		}, []string{"op", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      "Duration of NSS calls, by operation.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"op"}),
	}
	o.registry.MustRegister(o.lookups, o.duration)
	return o
}

// ObserveLookup implements [nss.Observer].
func (o *Observer) ObserveLookup(op string, status nss.Status, elapsed time.Duration) {
	o.lookups.WithLabelValues(op, status.String()).Inc()
	o.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Gatherer returns the gatherer of the collected metrics.
func (o *Observer) Gatherer() prometheus.Gatherer {
	return o.registry
}

// WriteTextfile writes the collected metrics to path in the text exposition
// format, replacing the file atomically.
func (o *Observer) WriteTextfile(path string) (err error) {
	defer decorate.OnError(&err, "could not write metrics to %q", path)

	return prometheus.WriteToTextfile(path, o.registry)
}
