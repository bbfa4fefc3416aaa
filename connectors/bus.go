package connectors

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ignitergo/connectors/pkg/logger"
)

// Subscriber receives every Event emitted on the bus.
type Subscriber func(Event)

// TelemetrySink receives every Event for forwarding to an observability
// backend (slog, Prometheus, zap, ...). It shares the Subscriber contract:
// a sink must never block or panic the emitting goroutine for longer than
// its own isolated invocation.
type TelemetrySink interface {
	Emit(Event)
}

// EventBus fans an Event out to every subscriber and sink.
//
// Deliberately serial, not concurrent: subscribers are invoked one at a
// time, in subscription order, each wrapped in a panic/error recovery
// boundary so that one failing subscriber cannot prevent later ones from
// observing the event or block the emitting call indefinitely waiting on a
// goroutine. This trades raw fan-out throughput for predictable fault
// isolation, matching spec.md's "a misbehaving subscriber must not affect
// the others" invariant.
type EventBus struct {
	mu          sync.Mutex
	subscribers map[int]Subscriber
	sinks       []TelemetrySink
	nextID      int
	log         *slog.Logger
}

func newEventBus(log *slog.Logger) *EventBus {
	if log == nil {
		log = logger.NewLogger()
	}
	return &EventBus{subscribers: make(map[int]Subscriber), log: log}
}

// Subscribe registers fn to receive every future Event and returns a
// token that Unsubscribe accepts to remove it.
func (b *EventBus) Subscribe(fn Subscriber) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = fn
	return id
}

// Unsubscribe removes a subscriber registered with Subscribe. Unsubscribing
// an unknown or already-removed token is a no-op.
func (b *EventBus) Unsubscribe(token int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, token)
}

// AddSink registers a TelemetrySink alongside normal subscribers; sinks
// are invoked with the same serial fault-isolation guarantee.
func (b *EventBus) AddSink(sink TelemetrySink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink)
}

// Emit delivers evt to every subscriber and sink, serially, isolating each
// invocation so a panic or simply a slow subscriber never prevents the
// rest from running and never propagates to the caller.
func (b *EventBus) Emit(evt Event) {
	b.mu.Lock()
	subs := make([]Subscriber, 0, len(b.subscribers))
	for _, fn := range b.subscribers {
		subs = append(subs, fn)
	}
	sinks := append([]TelemetrySink(nil), b.sinks...)
	b.mu.Unlock()

	for _, fn := range subs {
		b.invokeSubscriber(fn, evt)
	}
	for _, sink := range sinks {
		b.invokeSink(sink, evt)
	}
}

func (b *EventBus) invokeSubscriber(fn Subscriber, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("connectors: subscriber panicked",
				logger.Scope("event_bus"),
				slog.Any("recovered", r),
				slog.String("event_type", string(evt.Type)))
		}
	}()
	fn(evt)
}

func (b *EventBus) invokeSink(sink TelemetrySink, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("connectors: telemetry sink panicked",
				logger.Scope("event_bus"),
				slog.Any("recovered", r),
				slog.String("event_type", string(evt.Type)))
		}
	}()
	sink.Emit(evt)
}

// telemetryName returns the igniter.connectors.<eventType> name used by
// TelemetrySink implementations.
func telemetryName(t EventType) string {
	return fmt.Sprintf("igniter.connectors.%s", t)
}
