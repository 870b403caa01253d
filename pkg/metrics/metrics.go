package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "featurekit"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

type options struct {
	store   string
	buckets []float64
}

// Option configures instrumentation.
type Option func(*options)

// WithStoreName sets the "store" label. Defaults to "default".
func WithStoreName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.store = name
		}
	}
}

// WithBuckets overrides the latency histogram buckets.
func WithBuckets(buckets ...float64) Option {
	return func(o *options) {
		if len(buckets) > 0 {
			o.buckets = buckets
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		store:   "default",
		buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// register adds c to reg, reusing an identical collector registered
// earlier so several stores can share one registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
