package events

import "sync"

// DefaultStreamBuffer is the per-subscriber queue depth used when callers
// pass a non-positive buffer to Subscribe.
const DefaultStreamBuffer = 64

// Broadcaster hands committed events to channel subscribers. Delivery never
// blocks the emitter: a subscriber whose queue is full is dropped and its
// channel closed, and it has to resubscribe and backfill from the indexer.
type Broadcaster struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]chan Event
}

// NewBroadcaster returns an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[uint64]chan Event)}
}

// Subscribe registers a new channel subscriber. The returned cancel func
// removes it and is safe to call more than once.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = DefaultStreamBuffer
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()
	return ch, func() { b.remove(id) }
}

// Len reports the number of live subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Emit implements Emitter.
func (b *Broadcaster) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			delete(b.subs, id)
			close(ch)
		}
	}
}

func (b *Broadcaster) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}
