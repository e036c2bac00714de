package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels attached to ledger operation measurements.
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
)

type instruments struct {
	operations metric.Int64Counter
	duration   metric.Float64Histogram
	events     metric.Int64Counter
}

var (
	instrumentsOnce sync.Once
	ledgerInstr     *instruments
)

// Instruments are created against the global meter. Before Init installs a
// provider the global meter delegates to a no-op, and measurements recorded
// later flow to whichever provider Init installs.
func ledgerInstruments() *instruments {
	instrumentsOnce.Do(func() {
		meter := otel.Meter(InstrumentationName)
		inst := &instruments{}
		inst.operations, _ = meter.Int64Counter("monkeydao.operations",
			metric.WithDescription("Ledger operations applied, by outcome."))
		inst.duration, _ = meter.Float64Histogram("monkeydao.operation.duration",
			metric.WithDescription("Time spent applying a ledger operation."),
			metric.WithUnit("s"))
		inst.events, _ = meter.Int64Counter("monkeydao.events.committed",
			metric.WithDescription("Events published after commit."))
		ledgerInstr = inst
	})
	return ledgerInstr
}

// RecordOperation exports one ledger operation. kind is the error kind for
// rejected operations and empty otherwise.
func RecordOperation(ctx context.Context, operation, kind string, events int, elapsed time.Duration) {
	inst := ledgerInstruments()
	outcome := OutcomeCommitted
	if kind != "" {
		outcome = OutcomeRejected
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
		attribute.String("kind", kind),
	)
	if inst.operations != nil {
		inst.operations.Add(ctx, 1, attrs)
	}
	if inst.duration != nil {
		inst.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
	if inst.events != nil && events > 0 {
		inst.events.Add(ctx, int64(events), metric.WithAttributes(attribute.String("operation", operation)))
	}
}
