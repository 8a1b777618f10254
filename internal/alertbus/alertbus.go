// Package alertbus publishes a CloudEvent whenever the model raises a
// warning-category view mark (currently only "Event(s) aborted", the
// shutdown-sweep signal that the target deadlocked or was killed before
// every traced primitive returned). It exists so an operator can attach a
// subscriber — page on-call, write to a dashboard — without the model
// depending on any particular transport.
//
// Grounded in an observer pattern (application_observer.go's
// ObservableApplication) and an in-memory eventbus engine
// (modules/eventbus/memory.go): a single in-process, synchronous fan-out
// to registered subscribers. Durable broker-backed eventbus engines are
// not wired here — see DESIGN.md for why.
package alertbus

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// Subscriber receives every mark published on the bus.
type Subscriber func(ctx context.Context, ev cloudevents.Event)

// Bus is a minimal synchronous pub/sub for profiler alerts.
type Bus struct {
	source      string
	subscribers []Subscriber
}

// New returns a Bus that stamps published events with the given
// CloudEvents source (conventionally the trace session id or the target
// binary's name).
func New(source string) *Bus {
	return &Bus{source: source}
}

// Subscribe registers s to receive future published events.
func (b *Bus) Subscribe(s Subscriber) {
	b.subscribers = append(b.subscribers, s)
}

// PublishMark emits a CloudEvent describing a view mark. Errors constructing
// or serializing the event are swallowed and not reported to the caller —
// a malformed alert must never prevent the trace file itself from flushing.
func (b *Bus) PublishMark(name, category, scope string, clock int64, thread int) {
	ev := cloudevents.NewEvent()
	ev.SetID(uuid.NewString())
	ev.SetSource(b.source)
	ev.SetType("io.syncprof.mark")
	ev.SetTime(time.Now())
	_ = ev.SetData(cloudevents.ApplicationJSON, map[string]any{
		"name":     name,
		"category": category,
		"scope":    scope,
		"clock":    clock,
		"thread":   thread,
	})

	ctx := context.Background()
	for _, s := range b.subscribers {
		s(ctx, ev)
	}
}
