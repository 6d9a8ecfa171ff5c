package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "lastbite_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	importParses  *prometheus.CounterVec
	importBatches *prometheus.CounterVec
	importRows    *prometheus.CounterVec
)

// Init registers all collectors exactly once.
func Init() {
	registerOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method and status",
			},
			[]string{"method", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		)

		importParses = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_parses_total",
				Help: "Total upload parse attempts by result",
			},
			[]string{"result"},
		)
		importBatches = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_batches_total",
				Help: "Total confirmed import batches by final status",
			},
			[]string{"status"},
		)
		importRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_rows_total",
				Help: "Total import rows by outcome",
			},
			[]string{"outcome"},
		)

		prometheus.MustRegister(
			httpRequests,
			httpLatency,
			importParses,
			importBatches,
			importRows,
		)
	})
}

// Handler exposes the default registry for the /metrics route.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		if httpRequests != nil {
			httpRequests.WithLabelValues(r.Method, strconv.Itoa(ww.status)).Inc()
		}
		if httpLatency != nil {
			httpLatency.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// IncParse increments the parse counter.
func IncParse(result string) {
	if result == "" {
		result = resultSuccess
	}
	if importParses != nil {
		importParses.WithLabelValues(result).Inc()
	}
}

// IncBatch increments the batch counter by final status.
func IncBatch(status string) {
	if status == "" {
		status = "unknown"
	}
	if importBatches != nil {
		importBatches.WithLabelValues(status).Inc()
	}
}

// AddRows adds to the row outcome counter.
func AddRows(outcome string, count int) {
	if count <= 0 {
		return
	}
	if importRows != nil {
		importRows.WithLabelValues(outcome).Add(float64(count))
	}
}

// Exported result labels for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
