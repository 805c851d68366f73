// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the indexer.
type Metrics struct {
	// Ingestion metrics
	BlocksIngested       *prometheus.CounterVec
	TransactionsIngested prometheus.Counter
	EventsIngested       *prometheus.CounterVec
	TransferEvents       *prometheus.CounterVec
	AccountsCreated      prometheus.Counter
	ChainHeight          *prometheus.GaugeVec

	// Seed metrics
	SeedRunsTotal *prometheus.CounterVec
	SeedDuration  prometheus.Histogram

	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCErrors      *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	ArchiveErrors   prometheus.Counter

	// Health metrics
	LastSuccessfulSync prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "phantasma_explorer"
	}

	return &Metrics{
		BlocksIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "blocks_total",
			Help:      "Total number of blocks committed to the read-model by chain",
		}, []string{"chain"}),
		TransactionsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "transactions_total",
			Help:      "Total number of transactions committed to the read-model",
		}),
		EventsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_total",
			Help:      "Total number of events committed by kind",
		}, []string{"kind"}),
		TransferEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "transfer_events_total",
			Help:      "Total number of counted transfer events by token",
		}, []string{"symbol"}),
		AccountsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "accounts_created_total",
			Help:      "Total number of accounts created",
		}),
		ChainHeight: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "chain_height",
			Help:      "Highest committed block height by chain",
		}, []string{"chain"}),

		SeedRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "seed",
			Name:      "runs_total",
			Help:      "Total number of seed runs by outcome",
		}, []string{"status"}),
		SeedDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "seed",
			Name:      "duration_seconds",
			Help:      "Seed run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "Phantasma RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "errors_total",
			Help:      "Total number of failed RPC calls by method and error kind",
		}, []string{"method", "kind"}),

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
		ArchiveErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "export_errors_total",
			Help:      "Total number of failed transfer archive exports",
		}),

		LastSuccessfulSync: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_sync_timestamp",
			Help:      "Unix timestamp of last committed chain or block batch",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordBlocks records committed blocks of a chain and its new height.
func RecordBlocks(chain string, blocks int, height uint64) {
	DefaultMetrics.BlocksIngested.WithLabelValues(chain).Add(float64(blocks))
	DefaultMetrics.ChainHeight.WithLabelValues(chain).Set(float64(height))
}

// RecordTransactions records committed transactions.
func RecordTransactions(n int) {
	DefaultMetrics.TransactionsIngested.Add(float64(n))
}

// RecordEvents records committed events of one kind.
func RecordEvents(kind string, n int) {
	DefaultMetrics.EventsIngested.WithLabelValues(kind).Add(float64(n))
}

// RecordTransfers records counted transfer events of a token.
func RecordTransfers(symbol string, n int64) {
	DefaultMetrics.TransferEvents.WithLabelValues(symbol).Add(float64(n))
}

// RecordAccountsCreated records newly created accounts.
func RecordAccountsCreated(n int) {
	DefaultMetrics.AccountsCreated.Add(float64(n))
}

// RecordSeedRun records a seed run outcome ("ok", "skipped", "failed").
func RecordSeedRun(status string, durationSeconds float64) {
	DefaultMetrics.SeedRunsTotal.WithLabelValues(status).Inc()
	if status != "skipped" {
		DefaultMetrics.SeedDuration.Observe(durationSeconds)
	}
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordRPCError records a failed RPC call.
func RecordRPCError(method, kind string) {
	DefaultMetrics.RPCErrors.WithLabelValues(method, kind).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordArchiveError records a failed transfer archive export.
func RecordArchiveError() {
	DefaultMetrics.ArchiveErrors.Inc()
}

// MarkSynced records the time of the last committed batch.
func MarkSynced() {
	DefaultMetrics.LastSuccessfulSync.SetToCurrentTime()
}
