package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/featurekit/pkg/feature"
)

// Sink is a feature.EventSink counting events by name and store.
// Feature names are not used as labels; they are unbounded.
type Sink struct {
	store  string
	events *prometheus.CounterVec
}

var _ feature.EventSink = (*Sink)(nil)

// NewSink registers the event counter on reg.
func NewSink(reg prometheus.Registerer, opts ...Option) *Sink {
	o := newOptions(opts)
	return &Sink{
		store: o.store,
		events: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Feature events such as resolutions of unknown features.",
		}, []string{"store", "event"})),
	}
}

func (s *Sink) Emit(_ context.Context, event feature.Event) {
	s.events.WithLabelValues(s.store, event.Name).Inc()
}
