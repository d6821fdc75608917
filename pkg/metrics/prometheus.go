package metrics

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"payments_ledger/internal/domain"
	"payments_ledger/internal/processor"
	"payments_ledger/pkg/money"
)

var _ processor.Observer = (*MetricsCollector)(nil)

// MetricsCollector keeps ledger metrics in a private registry. It is safe
// for concurrent use, so one collector can observe sharded builds and
// concurrent API requests.
type MetricsCollector struct {
	registry      *prometheus.Registry
	transactions  *prometheus.CounterVec
	backfills     prometheus.Counter
	buildDuration prometheus.Histogram
	clients       prometheus.Gauge
	lockedClients prometheus.Gauge
	logger        *slog.Logger
}

func NewMetricsCollector(logger *slog.Logger) *MetricsCollector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()

	collector := &MetricsCollector{
		registry: registry,
		transactions: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_transactions_total",
			Help: "Total number of transactions folded into a ledger, by kind and outcome",
		}, []string{"kind", "outcome"}),
		backfills: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "ledger_backfills_total",
			Help: "Total number of rejected withdrawals paid after a resolve",
		}),
		buildDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_build_duration_seconds",
			Help:    "Time taken to build a ledger",
			Buckets: prometheus.DefBuckets,
		}),
		clients: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Name: "ledger_clients",
			Help: "Number of clients in the most recent ledger",
		}),
		lockedClients: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Name: "ledger_locked_clients",
			Help: "Number of locked clients in the most recent ledger",
		}),
		logger: logger,
	}

	return collector
}

func (m *MetricsCollector) TransactionProcessed(kind domain.Kind, outcome processor.Outcome) {
	m.transactions.WithLabelValues(string(kind), string(outcome)).Inc()
}

func (m *MetricsCollector) WithdrawalBackfilled(domain.ClientID, domain.TransactionID, money.Amount) {
	m.backfills.Inc()
}

// RecordBuild observes one finished build.
func (m *MetricsCollector) RecordBuild(duration time.Duration, ledger domain.Ledger) {
	locked := 0
	for _, row := range ledger {
		if row.Locked {
			locked++
		}
	}

	m.buildDuration.Observe(duration.Seconds())
	m.clients.Set(float64(len(ledger)))
	m.lockedClients.Set(float64(locked))
}

func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current metrics in the text exposition format,
// for pickup by the node exporter textfile collector.
func (m *MetricsCollector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	m.logger.Debug("Metrics textfile written", slog.String("path", path))
	return nil
}
