package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"signal_bot/internal/models"
)

// Metrics: счётчики движка для /metrics. Свой реестр, чтобы не зависеть от глобального.
type Metrics struct {
	Registry *prometheus.Registry

	ticks       prometheus.Counter
	fetchErrors *prometheus.CounterVec
	candidates  *prometheus.CounterVec
	published   *prometheus.CounterVec
	retrains    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "signal_bot",
			Name:      "ticks_total",
			Help:      "Engine ticks while active.",
		}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signal_bot",
			Name:      "fetch_errors_total",
			Help:      "Candle fetch failures by instrument.",
		}, []string{"instrument"}),
		candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signal_bot",
			Name:      "rule_candidates_total",
			Help:      "Rule setups before the probability filter.",
		}, []string{"instrument", "side"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signal_bot",
			Name:      "signals_published_total",
			Help:      "Signals sent to the operator.",
		}, []string{"instrument", "side"}),
		retrains: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signal_bot",
			Name:      "retrains_total",
			Help:      "Retrain attempts by result.",
		}, []string{"result"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ticks, m.fetchErrors, m.candidates, m.published, m.retrains,
	)
	return m
}

func (m *Metrics) ObserveTick() { m.ticks.Inc() }

func (m *Metrics) ObserveFetchError(instrument string) {
	m.fetchErrors.WithLabelValues(instrument).Inc()
}

func (m *Metrics) ObserveCandidate(sig models.Signal) {
	m.candidates.WithLabelValues(sig.Instrument, string(sig.Side)).Inc()
}

func (m *Metrics) ObservePublished(sig models.Signal) {
	m.published.WithLabelValues(sig.Instrument, string(sig.Side)).Inc()
}

// ObserveRetrain: result: ok / skipped / error.
func (m *Metrics) ObserveRetrain(result string) {
	m.retrains.WithLabelValues(result).Inc()
}
