// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Engine metrics
	OperationsTotal   *prometheus.CounterVec
	OperationErrors   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Bond metrics
	BondsByState   *prometheus.GaugeVec
	UnitsIssued    *prometheus.GaugeVec
	PeriodsAccrued prometheus.Counter
	ReportsLate    prometheus.Counter

	// Token metrics
	TransfersTotal prometheus.Counter
	TransferVolume prometheus.Counter

	// Event stream metrics
	EventsEmitted     *prometheus.CounterVec
	WSClients         prometheus.Gauge
	WSMessagesDropped prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	UptimeSeconds prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "impact_bond_engine"
	}

	return &Metrics{
		// Engine metrics
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Total number of engine operations by name",
		}, []string{"operation"}),
		OperationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_errors_total",
			Help:      "Total number of rejected engine operations by name and reason",
		}, []string{"operation", "reason"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Engine operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		// Bond metrics
		BondsByState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bonds",
			Name:      "by_state",
			Help:      "Number of bonds in each lifecycle state",
		}, []string{"state"}),
		UnitsIssued: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bonds",
			Name:      "units_issued",
			Help:      "Units currently issued per bond",
		}, []string{"bond"}),
		PeriodsAccrued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bonds",
			Name:      "periods_accrued_total",
			Help:      "Total number of coupon periods accrued",
		}),
		ReportsLate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bonds",
			Name:      "reports_late_total",
			Help:      "Total number of impact reports submitted late",
		}),

		// Token metrics
		TransfersTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "transfers_total",
			Help:      "Total number of EverUSD transfers settled by the engine",
		}),
		TransferVolume: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "transfer_volume_total",
			Help:      "Total EverUSD volume moved, in minor units",
		}),

		// Event stream metrics
		EventsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "emitted_total",
			Help:      "Total number of engine events emitted by type",
		}, []string{"type"}),
		WSClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "ws_clients",
			Help:      "Currently connected WebSocket subscribers",
		}),
		WSMessagesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "ws_messages_dropped_total",
			Help:      "Messages dropped for slow WebSocket subscribers",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uptime_seconds_total",
			Help:      "Process uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
