package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 抓取相关
	FetchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ncov_fetch_chunked_retries_total",
			Help: "Total number of immediate fetch retries after chunked encoding errors",
		},
	)

	Attempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ncov_crawl_attempts_total",
			Help: "Total number of fetch+extract attempts by outcome",
		},
		[]string{"outcome"},
	)

	FragmentsMissing = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ncov_fragments_missing_total",
			Help: "Total number of embedded fragments that could not be extracted",
		},
		[]string{"fragment"},
	)

	CyclesCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ncov_crawl_cycles_completed_total",
			Help: "Total number of poll cycles that persisted a complete page",
		},
	)

	LastCrawlTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ncov_last_crawl_timestamp_ms",
			Help: "Crawl timestamp of the last completed cycle in milliseconds",
		},
	)

	// 持久化相关
	Records = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ncov_records_total",
			Help: "Total number of normalized records by collection and result",
		},
		[]string{"collection", "result"},
	)

	UnmappedNames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ncov_unmapped_names_total",
			Help: "Total number of name-map lookup misses",
		},
		[]string{"kind"},
	)

	// HTTP API
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// 记录结果标签
const (
	ResultInserted  = "inserted"
	ResultDuplicate = "duplicate"
	ResultFailed    = "failed"
)
