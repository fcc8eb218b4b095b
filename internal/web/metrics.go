package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phyten/monostyle/internal/engine"
)

// metrics はサーバーごとのレジストリに登録します。テストで Server を複数作っても衝突しません。
type metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	diagnostics *prometheus.CounterVec
	files       prometheus.Counter
	cache       *prometheus.CounterVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "monostyle",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "monostyle",
			Subsystem: "lint",
			Name:      "duration_seconds",
			Help:      "Time spent linting per request",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"route"}),
		diagnostics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "monostyle",
			Subsystem: "lint",
			Name:      "diagnostics_total",
			Help:      "Reported problems by rule and severity",
		}, []string{"rule", "severity"}),
		files: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "monostyle",
			Subsystem: "lint",
			Name:      "files_total",
			Help:      "Files linted by repository runs",
		}),
		cache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "monostyle",
			Subsystem: "ruleset_cache",
			Name:      "lookups_total",
			Help:      "Rule set cache lookups by result (hit or miss)",
		}, []string{"result"}),
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) observeItems(items []engine.Item) {
	for _, it := range items {
		m.diagnostics.WithLabelValues(it.Rule, string(it.Severity)).Inc()
	}
}

func (m *metrics) observeDuration(route string, start time.Time) {
	m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

// instrument はステータスコードを数えるミドルウェアです。
func (m *metrics) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		m.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wrote {
		r.status = code
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wrote = true
	return r.ResponseWriter.Write(b)
}

// Flush は SSE のために下の ResponseWriter の Flush を通します。
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
