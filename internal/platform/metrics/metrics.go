package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus collectors for frame loading, rendering and the
// HTTP control surface. It satisfies sequence.Recorder.
type Metrics struct {
	registry          *prometheus.Registry
	framesLoaded      prometheus.Counter
	loadFailures      prometheus.Counter
	framesReady       prometheus.Gauge
	framesTotal       prometheus.Gauge
	tierDuration      *prometheus.HistogramVec
	draws             prometheus.Counter
	redrawsSuppressed prometheus.Counter
	scrollSignals     prometheus.Counter
	requestsTotal     prometheus.Counter
	errorsTotal       prometheus.Counter
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imageseq_frames_loaded_total",
			Help: "Total number of frames fetched and decoded successfully",
		}),
		loadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imageseq_frame_load_failures_total",
			Help: "Total number of frame fetch or decode failures",
		}),
		framesReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "imageseq_frames_ready",
			Help: "Number of frames currently ready for display",
		}),
		framesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "imageseq_frames",
			Help: "Length of the image sequence",
		}),
		tierDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "imageseq_tier_duration_seconds",
			Help:    "Time for every load in a tier to settle",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"tier"}),
		draws: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imageseq_draws_total",
			Help: "Total number of frames drawn to the canvas",
		}),
		redrawsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imageseq_redraws_suppressed_total",
			Help: "Total number of evaluations that resolved to the frame already on screen",
		}),
		scrollSignals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imageseq_scroll_signals_total",
			Help: "Total number of scroll signals received over HTTP",
		}),
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imageseq_http_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imageseq_http_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
	}

	m.registry.MustRegister(
		m.framesLoaded,
		m.loadFailures,
		m.framesReady,
		m.framesTotal,
		m.tierDuration,
		m.draws,
		m.redrawsSuppressed,
		m.scrollSignals,
		m.requestsTotal,
		m.errorsTotal,
	)
	return m
}

// IncFramesLoaded increments the loaded frames counter.
func (m *Metrics) IncFramesLoaded() { m.framesLoaded.Inc() }

// IncLoadFailures increments the load failure counter.
func (m *Metrics) IncLoadFailures() { m.loadFailures.Inc() }

// SetFramesReady sets the ready frames gauge.
func (m *Metrics) SetFramesReady(n int) { m.framesReady.Set(float64(n)) }

// SetFramesTotal sets the sequence length gauge.
func (m *Metrics) SetFramesTotal(n int) { m.framesTotal.Set(float64(n)) }

// ObserveTier records how long a tier took to settle.
func (m *Metrics) ObserveTier(tier string, d time.Duration) {
	m.tierDuration.WithLabelValues(tier).Observe(d.Seconds())
}

// IncDraws increments the draw counter.
func (m *Metrics) IncDraws() { m.draws.Inc() }

// IncRedrawsSuppressed increments the suppressed redraw counter.
func (m *Metrics) IncRedrawsSuppressed() { m.redrawsSuppressed.Inc() }

// IncScrollSignals increments the HTTP scroll signal counter.
func (m *Metrics) IncScrollSignals() { m.scrollSignals.Inc() }

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() { m.requestsTotal.Inc() }

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() { m.errorsTotal.Inc() }

// Handler returns an http.Handler that serves Prometheus metrics.
// refresh is called before each scrape to update gauges that are cheaper to
// read on demand.
func (m *Metrics) Handler(refresh func()) http.Handler {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if refresh != nil {
			refresh()
		}
		h.ServeHTTP(w, r)
	})
}
