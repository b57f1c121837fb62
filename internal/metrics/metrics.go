package metrics

import (
	"net/http"
	"strconv"

	"github.com/FranksOps/linkscout/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkscout_search_queries_total",
			Help: "Search queries sent to a provider, by outcome",
		},
		[]string{"provider", "status"},
	)

	CandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkscout_candidates_total",
			Help: "Search hits seen by each pipeline stage, by outcome",
		},
		[]string{"stage", "outcome"},
	)

	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkscout_fetch_requests_total",
			Help: "Total number of HTTP fetches executed",
		},
		[]string{"kind", "status", "detected", "detection_src"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkscout_fetch_duration_seconds",
			Help:    "Duration of HTTP fetches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"kind"},
	)

	FetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkscout_fetch_bytes_total",
			Help: "Total bytes downloaded across all fetches",
		},
		[]string{"kind"},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkscout_proxy_failures_total",
			Help: "Total number of proxy failures during fetches",
		},
		[]string{"proxy_url"},
	)

	DiscoverDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkscout_discover_duration_seconds",
			Help:    "Wall time of a whole discovery run",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"reranked"},
	)
)

// RecordFetch updates the fetch metrics for one result. kind separates
// search-provider traffic from page fetches.
func RecordFetch(kind string, res *storage.FetchResult) {
	if res == nil {
		return
	}

	status := strconv.Itoa(res.StatusCode)
	if res.Error != "" {
		status = "error"
	}

	FetchRequestsTotal.WithLabelValues(kind, status, strconv.FormatBool(res.DetectedBot), res.DetectionSrc).Inc()
	FetchDuration.WithLabelValues(kind).Observe(res.Duration.Seconds())
	FetchBytesTotal.WithLabelValues(kind).Add(float64(len(res.Body)))
}

// RecordQuery counts one search query. err == nil counts as "ok".
func RecordQuery(provider string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	SearchQueriesTotal.WithLabelValues(provider, status).Inc()
}

// RecordCandidates adds n to the stage/outcome counter. Zero is skipped.
func RecordCandidates(stage, outcome string, n int) {
	if n <= 0 {
		return
	}
	CandidatesTotal.WithLabelValues(stage, outcome).Add(float64(n))
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
