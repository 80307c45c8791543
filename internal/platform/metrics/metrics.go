// Package metrics defines the Prometheus collectors for content ingestion and
// exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the ingestion collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	FilesTotal     *prometheus.CounterVec
	TopicsTotal    *prometheus.CounterVec
	QuestionsTotal *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	LastRunUnix    *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_ingest_files_total",
				Help: "Content files seen by the ingestion pipeline, by module and status (loaded, failed).",
			},
			[]string{"module", "status"},
		),
		TopicsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_ingest_topics_total",
				Help: "Topics reconciled, by module and result (created, skipped).",
			},
			[]string{"module", "result"},
		),
		QuestionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_ingest_questions_total",
				Help: "Questions reconciled, by module and result (created, skipped, failed).",
			},
			[]string{"module", "result"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_ingest_run_duration_seconds",
				Help:    "Duration of one module ingestion pass in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"module", "state"},
		),
		LastRunUnix: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "catalog_ingest_last_run_timestamp_seconds",
				Help: "Unix time the last ingestion pass for a module finished.",
			},
			[]string{"module"},
		),
	}

	reg.MustRegister(
		m.FilesTotal,
		m.TopicsTotal,
		m.QuestionsTotal,
		m.RunDuration,
		m.LastRunUnix,
	)

	return m
}

func (m *Metrics) File(module, status string) {
	if m == nil {
		return
	}
	m.FilesTotal.WithLabelValues(module, status).Inc()
}

func (m *Metrics) Topic(module, result string) {
	if m == nil {
		return
	}
	m.TopicsTotal.WithLabelValues(module, result).Inc()
}

func (m *Metrics) Question(module, result string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.QuestionsTotal.WithLabelValues(module, result).Add(float64(n))
}

// RunFinished observes a completed module pass.
func (m *Metrics) RunFinished(module, state string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.WithLabelValues(module, state).Observe(elapsed.Seconds())
	m.LastRunUnix.WithLabelValues(module).SetToCurrentTime()
}

// Handler returns the scrape handler for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
