package bus

// Event is one typed notification from a store or daemon. Name is a
// pkg/protocol event constant; Payload carries the fully-populated value
// object so subscribers never re-read the store. Handlers must not
// mutate payloads.
type Event struct {
	Name    string      `json:"name"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventHandler handles a broadcast event. Handlers run synchronously on
// the mutating goroutine and must hand long work to their own queues.
type EventHandler func(Event)

// EventPublisher abstracts event broadcast + subscription.
// Used by the gateway server, trigger engine, and watchdog to decouple
// from the concrete Bus.
type EventPublisher interface {
	Subscribe(id string, handler EventHandler)
	Unsubscribe(id string)
	Broadcast(event Event)
}
