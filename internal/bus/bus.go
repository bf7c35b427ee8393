package bus

import (
	"log/slog"
	"sync"
)

type subscriber struct {
	id      string
	handler EventHandler
}

// Bus is the in-process event bus. Delivery is synchronous: Broadcast
// runs every handler in subscription order on the calling goroutine and
// returns when the last one has. A panicking handler is logged and
// skipped so it cannot block delivery to the rest.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscriber
	logger *slog.Logger
}

func New() *Bus {
	return &Bus{
		logger: slog.Default().With("component", "bus"),
	}
}

// Subscribe registers handler under id. Re-subscribing an existing id
// replaces the handler in place and keeps its original position.
func (b *Bus) Subscribe(id string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.subs {
		if b.subs[i].id == id {
			b.subs[i].handler = handler
			return
		}
	}
	b.subs = append(b.subs, subscriber{id: id, handler: handler})
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.subs {
		if b.subs[i].id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Broadcast delivers event to every subscriber in subscription order.
func (b *Bus) Broadcast(event Event) {
	b.mu.RLock()
	snapshot := make([]subscriber, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.RUnlock()

	for _, sub := range snapshot {
		b.deliver(sub, event)
	}
}

func (b *Bus) deliver(sub subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"subscriber", sub.id,
				"event", event.Name,
				"panic", r)
		}
	}()
	sub.handler(event)
}
