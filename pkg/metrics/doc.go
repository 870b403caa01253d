// Package metrics exposes feature store activity to Prometheus.
//
// NewStore wraps any feature.Store and records, per operation, a counter
// split by result and a latency histogram:
//
//	reg := prometheus.NewRegistry()
//	sink := metrics.NewSink(reg, metrics.WithStoreName("durable"))
//	store := metrics.NewStore(
//		feature.NewDurableStore(table, cfg, feature.WithEventSink(sink)),
//		reg,
//		metrics.WithStoreName("durable"),
//	)
//
// Collectors with the same name are shared, so several stores can be
// instrumented on one registry and told apart by the "store" label.
//
// Exported series:
//
//	featurekit_store_operations_total{store, operation, result}
//	featurekit_store_operation_duration_seconds{store, operation}
//	featurekit_events_total{store, event}
package metrics
