package events

import "sync"

// Buffer holds events emitted while an operation runs. The node flushes it
// to subscribers only after the operation commits and resets it otherwise,
// so rejected operations never leak events.
type Buffer struct {
	pending []Event
}

// Emit implements Emitter.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.pending = append(b.pending, evt)
}

// Len reports the number of buffered events.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.pending)
}

// Flush forwards buffered events in emission order and clears the buffer.
func (b *Buffer) Flush(to Emitter) {
	if b == nil {
		return
	}
	pending := b.pending
	b.pending = nil
	if to == nil {
		return
	}
	for _, evt := range pending {
		to.Emit(evt)
	}
}

// Reset drops all buffered events.
func (b *Buffer) Reset() {
	if b == nil {
		return
	}
	b.pending = nil
}

// Fanout delivers every event to a dynamic set of subscribers.
type Fanout struct {
	mu   sync.RWMutex
	subs []Emitter
}

// Subscribe registers an additional emitter.
func (f *Fanout) Subscribe(sub Emitter) {
	if f == nil || sub == nil {
		return
	}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
}

// Emit implements Emitter.
func (f *Fanout) Emit(evt Event) {
	if f == nil {
		return
	}
	f.mu.RLock()
	subs := append([]Emitter(nil), f.subs...)
	f.mu.RUnlock()
	for _, sub := range subs {
		sub.Emit(evt)
	}
}
