package smbupload

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics receives write outcomes. A nil Metrics is valid and records nothing.
type Metrics interface {
	// ObserveWrite records a finished write. step is empty on success.
	ObserveWrite(step Step, bytes int64, dirs int, duration time.Duration)
}

// prometheusMetrics is the Prometheus implementation of Metrics.
type prometheusMetrics struct {
	writesTotal      *prometheus.CounterVec
	writeDuration    prometheus.Histogram
	bytesWritten     prometheus.Counter
	stepFailures     *prometheus.CounterVec
	directoriesTotal prometheus.Counter
}

// NewPrometheusMetrics registers the write metrics on reg.
//
// Returns nil if reg is nil, so callers can pass the result straight to
// WithMetrics.
func NewPrometheusMetrics(reg prometheus.Registerer) Metrics {
	if reg == nil {
		return nil
	}

	return &prometheusMetrics{
		writesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "smbupload_writes_total",
				Help: "Total number of SMB write operations by result",
			},
			[]string{"result"},
		),
		writeDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "smbupload_write_duration_seconds",
				Help: "Duration of SMB write operations from dial to teardown",
				Buckets: []float64{
					0.01, // 10ms - local server
					0.05, // 50ms
					0.1,  // 100ms
					0.5,  // 500ms - WAN round trips
					1,    // 1s
					5,    // 5s
					15,   // 15s
					60,   // 60s - default operation timeout
				},
			},
		),
		bytesWritten: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "smbupload_bytes_written_total",
				Help: "Total payload bytes written to SMB shares",
			},
		),
		stepFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "smbupload_step_failures_total",
				Help: "Total number of failed SMB writes by failing step",
			},
			[]string{"step"},
		),
		directoriesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "smbupload_directories_created_total",
				Help: "Total number of directories created on SMB shares",
			},
		),
	}
}

func (m *prometheusMetrics) ObserveWrite(step Step, bytes int64, dirs int, duration time.Duration) {
	m.writeDuration.Observe(duration.Seconds())
	m.bytesWritten.Add(float64(bytes))
	m.directoriesTotal.Add(float64(dirs))

	if step == "" {
		m.writesTotal.WithLabelValues("success").Inc()
		return
	}
	m.writesTotal.WithLabelValues("error").Inc()
	m.stepFailures.WithLabelValues(string(step)).Inc()
}
