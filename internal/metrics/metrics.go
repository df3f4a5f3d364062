// Package metrics defines the Prometheus metrics of the engine services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the services update.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	PairsInRegistry      prometheus.Gauge
	PortfoliosInRegistry prometheus.Gauge
	RebalancesTotal      *prometheus.CounterVec
	CommittedSeq         prometheus.Gauge
}

// New creates and registers the collectors with reg under namespace.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	return &Metrics{
		OperationsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Engine operations by name and outcome.",
		}, []string{"op", "status"}),

		OperationDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time spent executing an engine operation, including waiting for the ledger.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),

		PairsInRegistry: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pairs_in_registry",
			Help:      "Pairs created by the factory.",
		}),

		PortfoliosInRegistry: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolios_in_registry",
			Help:      "Portfolios issued by the portfolio factory.",
		}),

		RebalancesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rebalances_total",
			Help:      "Portfolio rebalances by outcome.",
		}, []string{"status"}),

		CommittedSeq: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "committed_sequence",
			Help:      "Sequence number of the last committed operation.",
		}),
	}
}

// Observe records the outcome of op. Defer it from a function with a named
// error result:
//
//	defer m.Observe("swap", m.Timer("swap"), &err)
func (m *Metrics) Observe(op string, timer *prometheus.Timer, err *error) {
	timer.ObserveDuration()
	status := "ok"
	if err != nil && *err != nil {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(op, status).Inc()
}

// Timer starts timing op.
func (m *Metrics) Timer(op string) *prometheus.Timer {
	return prometheus.NewTimer(m.OperationDuration.WithLabelValues(op))
}
