// Package metrics provides Prometheus metrics for ingestion and export.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "readstash"

// Status label values.
const (
	StatusOK       = "ok"
	StatusFailed   = "failed"
	StatusNotFound = "not_found"
)

// Metrics holds the collectors on a private registry. A nil *Metrics
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	IngestTotal    *prometheus.CounterVec
	IngestDuration prometheus.Histogram
	ExportTotal    *prometheus.CounterVec
	ExportDuration prometheus.Histogram
	ImagesTotal    *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		IngestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_total",
				Help:      "Total number of article ingestions by outcome",
			},
			[]string{"status"},
		),
		IngestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ingest_duration_seconds",
				Help:      "Duration of article ingestion in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		ExportTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "epub_export_total",
				Help:      "Total number of EPUB exports by outcome",
			},
			[]string{"status"},
		),
		ExportDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "epub_export_duration_seconds",
				Help:      "Duration of EPUB exports in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		ImagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "epub_images_total",
				Help:      "Images encountered during EPUB export by result",
			},
			[]string{"result"},
		),
	}
	m.registry.MustRegister(
		m.IngestTotal, m.IngestDuration,
		m.ExportTotal, m.ExportDuration,
		m.ImagesTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordIngest records one ingestion.
func (m *Metrics) RecordIngest(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.IngestTotal.WithLabelValues(status).Inc()
	m.IngestDuration.Observe(d.Seconds())
}

// RecordExport records one EPUB export and its image outcomes.
func (m *Metrics) RecordExport(status string, d time.Duration, embedded, dropped int) {
	if m == nil {
		return
	}
	m.ExportTotal.WithLabelValues(status).Inc()
	m.ExportDuration.Observe(d.Seconds())
	m.ImagesTotal.WithLabelValues("embedded").Add(float64(embedded))
	m.ImagesTotal.WithLabelValues("dropped").Add(float64(dropped))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
