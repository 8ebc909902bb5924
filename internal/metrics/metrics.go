package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// ReservationsTotal counts quota reservation attempts by result
	// (reserved, quota_exceeded, error).
	ReservationsTotal *prometheus.CounterVec
	// CommitsTotal counts upload commits by result (committed, expired,
	// object_missing, error).
	CommitsTotal *prometheus.CounterVec
	// ReservationsSweptTotal counts reservations released by the expiry sweep.
	ReservationsSweptTotal prometheus.Counter
	// QuotaCorrectionsTotal counts accounts whose committed usage was
	// corrected by reconciliation.
	QuotaCorrectionsTotal prometheus.Counter
	// OverQuotaCommitsTotal counts commits whose actual size pushed an
	// account past its limit.
	OverQuotaCommitsTotal prometheus.Counter
)

// InitMetrics registers all collectors. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alumbook_http_requests_total",
			Help: "HTTP requests processed, partitioned by method, path and status.",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "alumbook_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		ReservationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alumbook_upload_reservations_total",
			Help: "Upload quota reservation attempts by result.",
		}, []string{"result"})

		CommitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alumbook_upload_commits_total",
			Help: "Upload commit attempts by result.",
		}, []string{"result"})

		ReservationsSweptTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alumbook_reservations_swept_total",
			Help: "Expired reservations released by the background sweep.",
		})

		QuotaCorrectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alumbook_quota_corrections_total",
			Help: "Accounts corrected by usage reconciliation.",
		})

		OverQuotaCommitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alumbook_over_quota_commits_total",
			Help: "Commits whose actual object size exceeded the remaining quota.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			ReservationsTotal,
			CommitsTotal,
			ReservationsSweptTotal,
			QuotaCorrectionsTotal,
			OverQuotaCommitsTotal,
		)
	})
}

// Middleware records request counts and latencies per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}
