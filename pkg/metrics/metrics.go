package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 表单提交结果计数
	SubmissionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_submission_count",
			Help: "Total number of contact form submissions by outcome",
		},
		[]string{"outcome"}, // outcome: succeeded, failed, demo, invalid, in_flight
	)

	// 字段校验失败计数
	ValidationErrorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_validation_error_count",
			Help: "Total number of field validation errors",
		},
		[]string{"field"},
	)

	// 中继调用延迟（毫秒）
	RelayCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_call_latency_ms",
			Help:    "Mail relay call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(50, 2, 10), // 50ms to ~25s
		},
		[]string{"endpoint", "status"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 结果上报计数
	OutcomeReportCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_outcome_report_count",
			Help: "Total number of delivery outcome reports by sink and status",
		},
		[]string{"sink", "status"},
	)
)

// IncrementSubmission 增加提交结果计数
func IncrementSubmission(outcome string) {
	SubmissionCount.WithLabelValues(outcome).Inc()
}

// IncrementValidationError 增加字段校验失败计数
func IncrementValidationError(field string) {
	ValidationErrorCount.WithLabelValues(field).Inc()
}

// RecordRelayCallLatency 记录中继调用延迟
func RecordRelayCallLatency(endpoint, status string, duration time.Duration) {
	RelayCallLatency.WithLabelValues(endpoint, status).Observe(float64(duration.Milliseconds()))
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementOutcomeReport 增加结果上报计数
func IncrementOutcomeReport(sink, status string) {
	OutcomeReportCount.WithLabelValues(sink, status).Inc()
}
