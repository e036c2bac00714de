package reputation

import (
	"monkeydao/core/events"
	"monkeydao/core/types"
)

type captureEmitter struct {
	events []*types.Event
}

func (c *captureEmitter) Emit(evt events.Event) {
	if rec, ok := evt.(events.Record); ok {
		c.events = append(c.events, rec.Event())
	}
}
