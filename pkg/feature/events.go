package feature

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/featurekit/pkg/logger"
)

// EventUnknownFeatureResolved is emitted when an undefined feature is resolved.
const EventUnknownFeatureResolved = "feature.unknown_resolved"

// Event is an observability notification raised by a store.
type Event struct {
	Name       string
	Feature    string
	Scope      Scope
	OccurredAt time.Time
}

// EventSink receives store events. Emit must not block for long.
type EventSink interface {
	Emit(ctx context.Context, event Event)
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(ctx context.Context, event Event)

// Emit calls f(ctx, event).
func (f SinkFunc) Emit(ctx context.Context, event Event) {
	f(ctx, event)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Emit(context.Context, Event) {}

// MultiSink fans an event out to several sinks in order.
func MultiSink(sinks ...EventSink) EventSink {
	return SinkFunc(func(ctx context.Context, event Event) {
		for _, s := range sinks {
			if s != nil {
				s.Emit(ctx, event)
			}
		}
	})
}

// LogSink writes events to log at warn level.
func LogSink(log *slog.Logger) EventSink {
	if log == nil {
		log = logger.Discard()
	}
	return SinkFunc(func(ctx context.Context, event Event) {
		log.WarnContext(ctx, "feature event",
			logger.Event(event.Name),
			logger.Feature(event.Feature),
			logger.Scope(event.Scope.Key()),
		)
	})
}

func unknownFeatureEvent(name string, scope Scope) Event {
	return Event{
		Name:       EventUnknownFeatureResolved,
		Feature:    name,
		Scope:      scope,
		OccurredAt: time.Now(),
	}
}
