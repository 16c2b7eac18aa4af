package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	askRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoptalk_ask_requests_total",
			Help: "Total number of ask requests by terminal status.",
		},
		[]string{"status"},
	)
	askDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shoptalk_ask_duration_seconds",
			Help:    "End-to-end ask pipeline latency in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40},
		},
	)
	generationAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shoptalk_generation_attempts_total",
			Help: "Total number of SQL generation attempts, including retries.",
		},
	)
	validationRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoptalk_validation_rejections_total",
			Help: "Total number of SQL statements rejected by the validation gate, by reason code.",
		},
		[]string{"code"},
	)
	llmCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shoptalk_llm_call_duration_seconds",
			Help:    "Language model call latency by operation.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"op", "outcome"},
	)
	queryExecutionDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shoptalk_query_execution_duration_seconds",
			Help:    "Database execution latency for validated statements.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5, 30},
		},
		[]string{"outcome"},
	)
	archiveWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoptalk_archive_writes_total",
			Help: "Total number of result archive writes.",
		},
		[]string{"outcome"},
	)
	schemaRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shoptalk_schema_refresh_total",
			Help: "Total number of schema context refreshes.",
		},
		[]string{"outcome"},
	)
	schemaTables = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shoptalk_schema_tables",
			Help: "Number of tables in the current schema context.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		askRequestsTotal,
		askDurationSeconds,
		generationAttemptsTotal,
		validationRejectionsTotal,
		llmCallDurationSeconds,
		queryExecutionDurationSeconds,
		archiveWritesTotal,
		schemaRefreshTotal,
		schemaTables,
	)
}

func ObserveAsk(status string, attempts int, elapsed time.Duration) {
	askRequestsTotal.WithLabelValues(status).Inc()
	askDurationSeconds.Observe(elapsed.Seconds())
	if attempts > 0 {
		generationAttemptsTotal.Add(float64(attempts))
	}
}

func ObserveValidationRejection(code string) {
	validationRejectionsTotal.WithLabelValues(code).Inc()
}

func ObserveLLMCall(op string, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	llmCallDurationSeconds.WithLabelValues(op, outcome).Observe(elapsed.Seconds())
}

func ObserveQueryExecution(elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	queryExecutionDurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func ObserveArchiveWrite(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	archiveWritesTotal.WithLabelValues(outcome).Inc()
}

func ObserveSchemaRefresh(tableCount int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	schemaRefreshTotal.WithLabelValues(outcome).Inc()
	if err == nil {
		schemaTables.Set(float64(tableCount))
	}
}
