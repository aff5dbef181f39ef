package middleware

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	authRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_rejections_total",
			Help: "Total number of unauthorized requests",
		},
		[]string{"reason"},
	)
	entriesSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gritful_daily_entries_submitted_total",
			Help: "Daily entries submitted, by completion",
		},
		[]string{"completed"},
	)
	taskCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gritful_task_completions_total",
			Help: "Periodic and one-time task completions, by frequency",
		},
		[]string{"frequency"},
	)
	emailOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gritful_emails_total",
			Help: "Queued email send attempts, by outcome",
		},
		[]string{"outcome"},
	)

	registerOnce sync.Once
)

// InitPrometheus registers the metrics. Safe to call more than once.
func InitPrometheus() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			authRejections,
			entriesSubmitted,
			taskCompletions,
			emailOutcomes,
		)
	})
}

func RecordEntrySubmitted(completed bool) {
	entriesSubmitted.WithLabelValues(strconv.FormatBool(completed)).Inc()
}

func RecordTaskCompleted(frequency string) {
	taskCompletions.WithLabelValues(frequency).Inc()
}

// RecordEmailOutcome counts one send attempt: "sent", "retry" or "failed".
func RecordEmailOutcome(outcome string) {
	emailOutcomes.WithLabelValues(outcome).Inc()
}

// MonitorMiddleware tracks request counts and latency per route template so
// ids in paths do not explode label cardinality.
func MonitorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		httpRequestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(ww.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())

		switch ww.statusCode {
		case http.StatusUnauthorized:
			authRejections.WithLabelValues("401_unauthorized").Inc()
		case http.StatusForbidden:
			authRejections.WithLabelValues("403_forbidden").Inc()
		}
	})
}

// BasicAuthMiddleware protects /metrics. With no credentials configured the
// endpoint is closed.
func BasicAuthMiddleware(user, pass string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok || user == "" || pass == "" ||
				subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
				subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="Metrics"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
