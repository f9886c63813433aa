// Package metrics exposes Prometheus counters and gauges for the scanning,
// trading, and settlement pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects and exposes daemon Prometheus metrics.
type Metrics struct {
	registry *prometheus.Registry

	OpportunitiesFound *prometheus.CounterVec
	TradesPlaced       *prometheus.CounterVec
	TradeCost          *prometheus.CounterVec
	CircuitBreakerTrips prometheus.Counter

	SettlementsTotal *prometheus.CounterVec
	RealizedPnL      prometheus.Counter
	AccountBalance   prometheus.Gauge
	OpenPositions    prometheus.Gauge

	ForecastLatency    *prometheus.HistogramVec
	ForecastDisagreement prometheus.Histogram
	ProviderErrors     *prometheus.CounterVec

	ScanDuration prometheus.Histogram
}

// New creates and registers a Metrics collector on its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		OpportunitiesFound: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "weatherd_opportunities_found_total", Help: "Trading opportunities surfaced by the scanner."},
			[]string{"city", "side"},
		),
		TradesPlaced: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "weatherd_trades_placed_total", Help: "Trades placed, paper or live."},
			[]string{"city", "side", "mode"},
		),
		TradeCost: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "weatherd_trade_cost_cents_total", Help: "Total cost of trades placed, in cents."},
			[]string{"mode"},
		),
		CircuitBreakerTrips: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "weatherd_circuit_breaker_trips_total", Help: "Times the circuit breaker has halted trading."},
		),

		SettlementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "weatherd_settlements_total", Help: "Settled positions, by outcome."},
			[]string{"outcome"},
		),
		RealizedPnL: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "weatherd_realized_pnl_cents_total", Help: "Cumulative realized P&L, in cents (monotonic counter of absolute movement; see daemon state for signed total)."},
		),
		AccountBalance: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "weatherd_account_balance_cents", Help: "Current account balance, in cents."},
		),
		OpenPositions: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "weatherd_open_positions", Help: "Current number of open positions."},
		),

		ForecastLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "weatherd_forecast_fetch_seconds",
				Help:    "Latency of a single provider forecast fetch.",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
			[]string{"provider"},
		),
		ForecastDisagreement: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "weatherd_forecast_disagreement_fahrenheit",
				Help:    "Spread between the highest and lowest provider forecast in an ensemble read.",
				Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 8, 10, 15},
			},
		),
		ProviderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "weatherd_provider_errors_total", Help: "Forecast provider fetch errors."},
			[]string{"provider"},
		),

		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "weatherd_scan_duration_seconds",
				Help:    "Duration of a full scan cycle across all cities.",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 500ms to ~256s
			},
		),
	}

	registry.MustRegister(
		m.OpportunitiesFound, m.TradesPlaced, m.TradeCost, m.CircuitBreakerTrips,
		m.SettlementsTotal, m.RealizedPnL, m.AccountBalance, m.OpenPositions,
		m.ForecastLatency, m.ForecastDisagreement, m.ProviderErrors, m.ScanDuration,
	)

	return m
}

// Registry returns the Prometheus registry backing this collector.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default returns the process-wide metrics instance.
func Default() *Metrics {
	once.Do(func() { defaultMetrics = New() })
	return defaultMetrics
}
