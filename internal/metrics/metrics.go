// Package metrics exposes recognition and compositing counters to Prometheus.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Recognition loop
	FramesRead      atomic.Uint64
	FramesProcessed atomic.Uint64
	FramesSkipped   atomic.Uint64
	ReadErrors      atomic.Uint64
	HandsDetected   atomic.Uint64
	WindowFlushes   atomic.Uint64
	SentenceEdits   atomic.Uint64

	// Stream clients
	ActiveClients atomic.Int64
	TotalClients  atomic.Uint64

	// Gloss jobs
	GlossJobs   atomic.Uint64
	GlossFailed atomic.Uint64
	ClipMisses  atomic.Uint64

	running        atomic.Bool
	composeSeconds prometheus.Histogram
	registry       *prometheus.Registry
}

// New creates a new Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		composeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signbridge_compose_duration_seconds",
			Help:    "Time spent compositing one gloss sentence",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
	}

	m.registerPrometheusMetrics()

	return m
}

func (m *Metrics) counter(name, help string, v *atomic.Uint64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{Name: name, Help: help},
		func() float64 { return float64(v.Load()) },
	))
}

func (m *Metrics) registerPrometheusMetrics() {
	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(m.composeSeconds)

	m.counter("signbridge_frames_read_total", "Frames read from the camera", &m.FramesRead)
	m.counter("signbridge_frames_processed_total", "Frames annotated and published", &m.FramesProcessed)
	m.counter("signbridge_frames_skipped_total", "Frames abandoned after a processing error", &m.FramesSkipped)
	m.counter("signbridge_read_errors_total", "Camera read failures and timeouts", &m.ReadErrors)
	m.counter("signbridge_hands_detected_total", "Frames with a detected hand", &m.HandsDetected)
	m.counter("signbridge_window_flushes_total", "Prediction window flushes", &m.WindowFlushes)
	m.counter("signbridge_sentence_edits_total", "Appends and deletes applied to the sentence", &m.SentenceEdits)
	m.counter("signbridge_stream_clients_total", "Stream clients ever connected", &m.TotalClients)
	m.counter("signbridge_gloss_jobs_total", "Gloss sentences submitted for compositing", &m.GlossJobs)
	m.counter("signbridge_gloss_jobs_failed_total", "Gloss jobs that produced no video", &m.GlossFailed)
	m.counter("signbridge_clip_misses_total", "Gloss tokens without a clip", &m.ClipMisses)

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "signbridge_stream_clients_active",
			Help: "Stream clients currently connected",
		},
		func() float64 { return float64(m.ActiveClients.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "signbridge_running",
			Help: "Recognition running (0=stopped, 1=running)",
		},
		func() float64 {
			if m.running.Load() {
				return 1
			}
			return 0
		},
	))
}

// SetRunning records the recognition running flag.
func (m *Metrics) SetRunning(running bool) {
	m.running.Store(running)
}

// ObserveCompose records the duration of one compositing job.
func (m *Metrics) ObserveCompose(d time.Duration) {
	m.composeSeconds.Observe(d.Seconds())
}

// ClientConnected tracks a new stream client and returns a func to call
// when it disconnects.
func (m *Metrics) ClientConnected() func() {
	m.TotalClients.Add(1)
	m.ActiveClients.Add(1)
	return func() { m.ActiveClients.Add(-1) }
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
