package loader

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/desertthunder/likedb/internal/repositories"
)

// Outcome label values of DocumentsTotal.
const (
	OutcomeUpserted = "upserted"
	OutcomeMatched  = "matched"
	OutcomeFailed   = "failed"
)

// Metrics holds the Prometheus metrics of a load on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	DocumentsTotal     *prometheus.CounterVec
	CollectionDuration *prometheus.HistogramVec
	LastSuccess        prometheus.Gauge
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		DocumentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "likedb_load_documents_total",
			Help: "Documents written by the loader, by collection and outcome",
		}, []string{"collection", "outcome"}),
		CollectionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "likedb_load_collection_duration_seconds",
			Help:    "Time spent writing one collection batch",
			Buckets: prometheus.DefBuckets,
		}, []string{"collection"}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "likedb_load_last_success_timestamp_seconds",
			Help: "Unix time of the last load without failed items",
		}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observe(collection string, res *repositories.BatchResult, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DocumentsTotal.WithLabelValues(collection, OutcomeUpserted).Add(float64(res.Upserted))
	m.DocumentsTotal.WithLabelValues(collection, OutcomeMatched).Add(float64(res.Matched))
	m.DocumentsTotal.WithLabelValues(collection, OutcomeFailed).Add(float64(len(res.Failures)))
	m.CollectionDuration.WithLabelValues(collection).Observe(elapsed.Seconds())
}

func (m *Metrics) succeeded(t time.Time) {
	if m == nil {
		return
	}
	m.LastSuccess.Set(float64(t.Unix()))
}
