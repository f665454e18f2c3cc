package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Payment metrics
	PaymentsRecorded prometheus.Counter
	PaymentsReversed prometheus.Counter
	PaymentDuration  prometheus.Histogram
	PaymentAmount    prometheus.Histogram
	PaymentErrors    *prometheus.CounterVec
	AllocationLines  prometheus.Histogram
	CreditCreated    prometheus.Counter
	CreditUsed       prometheus.Counter

	// Aggregation metrics
	RebuildsTotal   *prometheus.CounterVec
	RebuildDuration *prometheus.HistogramVec
	RebuildCells    prometheus.Counter
	RebuildErrors   *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBQueries     *prometheus.CounterVec
	DBDuration    *prometheus.HistogramVec
	DBConnections prometheus.Gauge
	DBErrors      *prometheus.CounterVec

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisErrors     *prometheus.CounterVec

	// Audit metrics
	AuditLogsCreated *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// Payment metrics
		PaymentsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "waterledger_payments_recorded_total",
			Help: "Total number of payments recorded",
		}),
		PaymentsReversed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "waterledger_payments_reversed_total",
			Help: "Total number of payments reversed",
		}),
		PaymentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "waterledger_payment_duration_seconds",
			Help:    "Duration of payment record operations",
			Buckets: prometheus.DefBuckets,
		}),
		PaymentAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "waterledger_payment_amount_cents",
			Help:    "Payment amounts in cents",
			Buckets: []float64{1000, 10000, 50000, 100000, 500000, 1000000, 10000000},
		}),
		PaymentErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waterledger_payment_errors_total",
				Help: "Total number of payment errors by type",
			},
			[]string{"error_type"},
		),
		AllocationLines: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "waterledger_allocation_lines",
			Help:    "Number of allocation lines per payment",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 12, 24},
		}),
		CreditCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "waterledger_credit_created_cents_total",
			Help: "Total overpayment credit created, in cents",
		}),
		CreditUsed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "waterledger_credit_used_cents_total",
			Help: "Total existing credit consumed by payments, in cents",
		}),

		// Aggregation metrics
		RebuildsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waterledger_aggregation_rebuilds_total",
				Help: "Total aggregated-view rebuilds by scope",
			},
			[]string{"scope"},
		),
		RebuildDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "waterledger_aggregation_rebuild_duration_seconds",
				Help:    "Duration of aggregated-view rebuilds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"scope"},
		),
		RebuildCells: promauto.NewCounter(prometheus.CounterOpts{
			Name: "waterledger_aggregation_cells_written_total",
			Help: "Total aggregated-view cells written",
		}),
		RebuildErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waterledger_aggregation_rebuild_errors_total",
				Help: "Total aggregated-view rebuild errors",
			},
			[]string{"scope"},
		),

		// API metrics
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waterledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "waterledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Database metrics
		DBQueries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waterledger_db_queries_total",
				Help: "Total database queries",
			},
			[]string{"operation", "table"},
		),
		DBDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "waterledger_db_query_duration_seconds",
				Help:    "Database query duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),
		DBConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "waterledger_db_connections",
			Help: "Current number of database connections",
		}),
		DBErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waterledger_db_errors_total",
				Help: "Total database errors",
			},
			[]string{"operation"},
		),

		// Redis metrics
		RedisOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waterledger_redis_operations_total",
				Help: "Total Redis operations",
			},
			[]string{"operation"},
		),
		RedisErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waterledger_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),

		// Audit metrics
		AuditLogsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waterledger_audit_logs_total",
				Help: "Total audit logs created",
			},
			[]string{"action", "status"},
		),
	}
}
