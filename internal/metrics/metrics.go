// Package metrics exposes Prometheus collectors for the download queue and
// the engine behind it.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ytget/synqed/internal/model"
)

// DefaultNamespace prefixes every metric name
const DefaultNamespace = "synqed"

// Metrics implements the recorder interfaces of the download queue and the
// engine. A single value may serve both.
type Metrics struct {
	enqueued     *prometheus.CounterVec
	admitted     prometheus.Counter
	finished     *prometheus.CounterVec
	notices      *prometheus.CounterVec
	queueSize    *prometheus.GaugeVec
	downloads    *prometheus.CounterVec
	inProgress   prometheus.Gauge
	duration     prometheus.Histogram
	healthChecks *prometheus.CounterVec
	healthy      prometheus.Gauge
}

// New creates the collectors under namespace and registers them with reg.
// A nil reg means prometheus.DefaultRegisterer. Registration panics on
// duplicate names.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_enqueued_total",
			Help:      "Jobs added to the download queue by queue mode",
		}, []string{"mode"}),
		admitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_admitted_total",
			Help:      "Jobs promoted from queued to pending",
		}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_finished_total",
			Help:      "Jobs that reached a terminal status",
		}, []string{"status"}),
		notices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_notices_total",
			Help:      "User notices issued by kind",
		}, []string{"kind"}),
		queueSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_jobs",
			Help:      "Jobs currently in the queue by partition",
		}, []string{"partition"}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_downloads_total",
			Help:      "Downloads run by the engine by outcome",
		}, []string{"outcome"}),
		inProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "engine_downloads_in_progress",
			Help:      "Downloads whose process is running",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_download_duration_seconds",
			Help:      "Wall time of a download process",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),
		healthChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_health_checks_total",
			Help:      "Health checks by result",
		}, []string{"result"}),
		healthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "engine_healthy",
			Help:      "1 when the last health check passed",
		}),
	}

	reg.MustRegister(
		m.enqueued,
		m.admitted,
		m.finished,
		m.notices,
		m.queueSize,
		m.downloads,
		m.inProgress,
		m.duration,
		m.healthChecks,
		m.healthy,
	)
	return m
}

// JobEnqueued implements download.Recorder
func (m *Metrics) JobEnqueued(mode string) {
	m.enqueued.WithLabelValues(mode).Inc()
}

// JobAdmitted implements download.Recorder
func (m *Metrics) JobAdmitted() {
	m.admitted.Inc()
}

// JobFinished implements download.Recorder
func (m *Metrics) JobFinished(status model.JobStatus) {
	m.finished.WithLabelValues(string(status)).Inc()
}

// NoticeIssued implements download.Recorder
func (m *Metrics) NoticeIssued(kind string) {
	m.notices.WithLabelValues(kind).Inc()
}

// QueueSize implements download.Recorder
func (m *Metrics) QueueSize(active, queued, history int) {
	m.queueSize.WithLabelValues("active").Set(float64(active))
	m.queueSize.WithLabelValues("queued").Set(float64(queued))
	m.queueSize.WithLabelValues("history").Set(float64(history))
}

// DownloadStarted implements backend.Recorder
func (m *Metrics) DownloadStarted() {
	m.inProgress.Inc()
}

// DownloadFinished implements backend.Recorder
func (m *Metrics) DownloadFinished(outcome string, elapsed time.Duration) {
	m.inProgress.Dec()
	m.downloads.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// HealthChecked implements backend.Recorder
func (m *Metrics) HealthChecked(ok bool) {
	result, value := "fail", 0.0
	if ok {
		result, value = "ok", 1.0
	}
	m.healthChecks.WithLabelValues(result).Inc()
	m.healthy.Set(value)
}
