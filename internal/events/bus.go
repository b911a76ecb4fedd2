package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for in-process broadcasting.
// The viewer loop publishes; observers (metrics) subscribe, so the loop
// never depends on who is listening.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(FrameDroppedEvent{Reason: DropWaitTimeout})
func (b *Bus) Publish(ev Event) {
	// kelindar/event dispatches by concrete type, so fan out through a
	// type switch rather than the interface.
	switch e := ev.(type) {
	case FrameDroppedEvent:
		event.Publish(b.dispatcher, e)
	case ResizeAppliedEvent:
		event.Publish(b.dispatcher, e)
	case ResizeRejectedEvent:
		event.Publish(b.dispatcher, e)
	case StreamStateEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes a handler function; the handler's parameter type
// determines which events it receives. Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e ResizeAppliedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(FrameDroppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ResizeAppliedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ResizeRejectedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StreamStateEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
