package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"monkeydao/core/events"
	"monkeydao/native/bank"
	"monkeydao/native/escrow"
	"monkeydao/native/reputation"
)

// ProgramMetrics tracks ledger operations and the value they move. It also
// implements events.Emitter so the node can feed it committed events.
type ProgramMetrics struct {
	operations    *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	escrowHeld    prometheus.Gauge
	rewardsMinted prometheus.Counter
	badgesMinted  *prometheus.CounterVec
	events        *prometheus.CounterVec
}

var (
	programOnce     sync.Once
	programRegistry *ProgramMetrics
)

// Program returns the lazily registered program metrics.
func Program() *ProgramMetrics {
	programOnce.Do(func() {
		programRegistry = &ProgramMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "monkey",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Ledger operations by name, outcome and error kind.",
			}, []string{"operation", "outcome", "kind"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "monkey",
				Subsystem: "ledger",
				Name:      "operation_duration_seconds",
				Help:      "Time spent applying a ledger operation, commit included.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			escrowHeld: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "monkey",
				Subsystem: "escrow",
				Name:      "held_base_units",
				Help:      "Value currently held in pool escrow since process start.",
			}),
			rewardsMinted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "monkey",
				Subsystem: "rewards",
				Name:      "minted_base_units_total",
				Help:      "MONK minted as rewards.",
			}),
			badgesMinted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "monkey",
				Subsystem: "reputation",
				Name:      "badges_minted_total",
				Help:      "Badges minted by level.",
			}, []string{"level"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "monkey",
				Subsystem: "events",
				Name:      "committed_total",
				Help:      "Committed ledger events by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(
			programRegistry.operations,
			programRegistry.latency,
			programRegistry.escrowHeld,
			programRegistry.rewardsMinted,
			programRegistry.badgesMinted,
			programRegistry.events,
		)
	})
	return programRegistry
}

// ObserveOperation records one applied or rejected operation. kind is empty
// on success.
func (m *ProgramMetrics) ObserveOperation(operation, kind string, duration time.Duration) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	outcome := "committed"
	if kind != "" {
		outcome = "rejected"
	}
	m.operations.WithLabelValues(operation, outcome, kind).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// Emit implements events.Emitter.
func (m *ProgramMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	m.events.WithLabelValues(evt.EventType()).Inc()
	record, ok := evt.(events.Record)
	if !ok || record.Event() == nil {
		return
	}
	attrs := record.Event().Attributes
	amount, _ := strconv.ParseFloat(attrs["amount"], 64)
	switch evt.EventType() {
	case escrow.EventTypeEscrowDeposited:
		m.escrowHeld.Add(amount)
	case escrow.EventTypeEscrowReleased, escrow.EventTypeEscrowRefunded, escrow.EventTypeEscrowSwept:
		m.escrowHeld.Sub(amount)
	case bank.EventTypeMint:
		m.rewardsMinted.Add(amount)
	case reputation.EventTypeBadgeMinted:
		level := attrs["badgeLevel"]
		if code, err := strconv.Atoi(level); err == nil {
			level = reputation.BadgeLevel(code).String()
		}
		m.badgesMinted.WithLabelValues(level).Inc()
	}
}
