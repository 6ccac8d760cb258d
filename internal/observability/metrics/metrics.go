package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	metricPrefix = "store_monitor_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	reportJobsTotal   *prometheus.CounterVec
	reportJobLatency  *prometheus.HistogramVec
	reportStores      prometheus.Histogram
	reportFallbacks   *prometheus.CounterVec
	ingestRowsTotal   *prometheus.CounterVec
	ingestLatency     *prometheus.HistogramVec
	httpRequestsTotal *prometheus.CounterVec
	reportExportTotal *prometheus.CounterVec
	queueDepth        prometheus.Gauge
)

// Init registers report metrics. When counter is non-nil a gauge of Running
// jobs is registered on top of it.
func Init(counter RunningCounter, logger *zap.Logger) {
	registerOnce.Do(func() {
		reportJobsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_jobs_total",
				Help: "Total finished report attempts by result",
			},
			[]string{"result"},
		)
		reportJobLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_job_latency_seconds",
				Help:    "Report generation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		reportStores = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_stores",
				Help:    "Stores per generated report",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
		)
		reportFallbacks = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_fallbacks_total",
				Help: "Policy fallbacks applied during generation by kind",
			},
			[]string{"kind"},
		)
		ingestRowsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_rows_total",
				Help: "Rows loaded at startup by dataset",
			},
			[]string{"dataset"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Dataset load latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"dataset", "result"},
		)
		httpRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by path and status code",
			},
			[]string{"path", "code"},
		)
		reportExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Report downloads by format and result",
			},
			[]string{"format", "result"},
		)
		queueDepth = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "task_queue_depth",
				Help: "Tasks waiting for a worker",
			},
		)

		prometheus.MustRegister(
			reportJobsTotal,
			reportJobLatency,
			reportStores,
			reportFallbacks,
			ingestRowsTotal,
			ingestLatency,
			httpRequestsTotal,
			reportExportTotal,
			queueDepth,
		)

		if counter != nil {
			registerJobMetrics(counter, logger)
		}
	})
}

// ObserveReportJob records a finished attempt.
func ObserveReportJob(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if reportJobsTotal != nil {
		reportJobsTotal.WithLabelValues(result).Inc()
	}
	if reportJobLatency != nil {
		reportJobLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveReportStores records how many stores a report covered.
func ObserveReportStores(count int) {
	if reportStores != nil && count >= 0 {
		reportStores.Observe(float64(count))
	}
}

// IncFallback counts an applied policy fallback.
func IncFallback(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	if reportFallbacks != nil {
		reportFallbacks.WithLabelValues(kind).Inc()
	}
}

// ObserveIngest records a dataset load.
func ObserveIngest(dataset, result string, rows int, duration time.Duration) {
	if dataset == "" {
		dataset = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if ingestRowsTotal != nil && rows > 0 {
		ingestRowsTotal.WithLabelValues(dataset).Add(float64(rows))
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(dataset, result).Observe(duration.Seconds())
	}
}

// IncHTTPRequest counts a served request.
func IncHTTPRequest(path string, code int) {
	if httpRequestsTotal != nil {
		httpRequestsTotal.WithLabelValues(path, statusCode(code)).Inc()
	}
}

// IncReportExport counts a report download.
func IncReportExport(format, result string) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportExportTotal != nil {
		reportExportTotal.WithLabelValues(format, result).Inc()
	}
}

// SetQueueDepth sets the number of queued tasks.
func SetQueueDepth(depth int) {
	if queueDepth != nil {
		queueDepth.Set(float64(depth))
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	FallbackWallClock = "wall_clock"
	FallbackTimezone  = "timezone"
)
