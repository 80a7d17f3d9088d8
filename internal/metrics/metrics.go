// Package metrics exposes Prometheus counters for the generation flow and
// the HTTP API.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"logomotion/internal/domain"
)

// Recorder implements the observer hooks of the logo client, the animation
// manager and the session registry.
type Recorder struct {
	gatherer prometheus.Gatherer

	logosTotal      *prometheus.CounterVec
	animationsTotal *prometheus.CounterVec
	pollsTotal      prometheus.Counter
	pollsPerJob     prometheus.Histogram
	sessionsActive  prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry that also carries the Go
// and process collectors.
func New(namespace string) *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(namespace, reg, reg)
}

func NewWithRegistry(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		gatherer: gatherer,
		logosTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logo_generations_total",
			Help:      "Logo generation attempts by tier and outcome",
		}, []string{"tier", "outcome"}),
		animationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "animations_total",
			Help:      "Animation jobs by outcome",
		}, []string{"outcome"}),
		pollsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "video_status_polls_total",
			Help:      "Status checks issued against video jobs",
		}),
		pollsPerJob: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "video_polls_per_job",
			Help:      "Status checks needed per animation job",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}),
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently held in memory",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 180},
		}, []string{"method", "route"}),
	}
}

func (r *Recorder) LogoGenerated(tier domain.ResolutionTier, err error) {
	if tier == "" {
		tier = domain.Tier1K
	}
	r.logosTotal.WithLabelValues(string(tier), Outcome(err)).Inc()
}

func (r *Recorder) VideoPolled() {
	r.pollsTotal.Inc()
}

func (r *Recorder) AnimationFinished(polls int, err error) {
	r.animationsTotal.WithLabelValues(Outcome(err)).Inc()
	if polls > 0 {
		r.pollsPerJob.Observe(float64(polls))
	}
}

func (r *Recorder) SessionsActive(n int) {
	r.sessionsActive.Set(float64(n))
}

// ObserveHTTP records one served request. route is the matched pattern, not
// the raw path.
func (r *Recorder) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// Outcome maps an error to a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, domain.ErrDownloadFailed):
		return "download"
	case errors.Is(err, domain.ErrCredentialExpired), errors.Is(err, domain.ErrNoCredential):
		return "credential"
	case errors.Is(err, domain.ErrInvalidPrompt), errors.Is(err, domain.ErrNoLogo), errors.Is(err, domain.ErrUnsupportedOption):
		return "invalid"
	case errors.Is(err, domain.ErrNoImage), errors.Is(err, domain.ErrNoVideoURI):
		return "no_output"
	case errors.Is(err, domain.ErrJobTimedOut), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "failed"
	}
}
