package events

import "monkeydao/core/types"

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Record is implemented by events that carry a ledger event payload.
type Record interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. the gateway or
// the explorer indexer).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Wrap adapts a raw ledger event to the Record interface.
func Wrap(evt *types.Event) Record { return recordEvent{evt: evt} }

type recordEvent struct {
	evt *types.Event
}

func (e recordEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e recordEvent) Event() *types.Event { return e.evt }
