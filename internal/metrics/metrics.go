// Package metrics exposes Prometheus counters for wallet connections,
// balance refreshes and form transactions. A nil *Metrics is valid and
// records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultRejected = "rejected"
	ResultReverted = "reverted"
	ResultInvalid  = "invalid"
)

// Metrics holds the collectors and the registry they live in.
type Metrics struct {
	reg *prometheus.Registry

	connects   *prometheus.CounterVec
	refreshes  *prometheus.CounterVec
	txTotal    *prometheus.CounterVec
	txDuration *prometheus.HistogramVec
	txPending  *prometheus.GaugeVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		connects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prt_wallet_connects_total",
				Help: "Wallet connection attempts by result.",
			},
			[]string{"result"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prt_balance_refreshes_total",
				Help: "Balance fetches by result.",
			},
			[]string{"result"},
		),
		txTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prt_transactions_total",
				Help: "Form submissions by form and result.",
			},
			[]string{"form", "result"},
		),
		txDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prt_transaction_duration_seconds",
				Help:    "Time from submit to settled, per form.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"form"},
		),
		txPending: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "prt_transactions_pending",
				Help: "Transactions currently pending, per form.",
			},
			[]string{"form"},
		),
	}
	m.reg.MustRegister(
		m.connects, m.refreshes, m.txTotal, m.txDuration, m.txPending,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Connect records a connection attempt.
func (m *Metrics) Connect(result string) {
	if m == nil {
		return
	}
	m.connects.WithLabelValues(result).Inc()
}

// BalanceRefresh records a balance fetch.
func (m *Metrics) BalanceRefresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

// TxStarted marks a form submission as pending.
func (m *Metrics) TxStarted(form string) {
	if m == nil {
		return
	}
	m.txPending.WithLabelValues(form).Inc()
}

// TxFinished records a settled submission that was started with TxStarted.
func (m *Metrics) TxFinished(form, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.txPending.WithLabelValues(form).Dec()
	m.txTotal.WithLabelValues(form, result).Inc()
	m.txDuration.WithLabelValues(form).Observe(elapsed.Seconds())
}

// TxRejected records a submission refused before it went pending.
func (m *Metrics) TxRejected(form, result string) {
	if m == nil {
		return
	}
	m.txTotal.WithLabelValues(form, result).Inc()
}
