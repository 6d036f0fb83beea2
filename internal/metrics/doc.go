/*
Package metrics exports photovariant measurements through Prometheus.

A Collector owns a private registry with these series (namespace
"photovariant" by default):

	existence_probes_total{result,source}          cache or storage answers
	resolutions_total{outcome}                     variant or original
	variants_generated_total{format,width,status}  generator uploads
	variant_size_bytes{format}                     encoded sizes
	originals_processed_total{status}              generator originals
	storage_operations_total{operation,status}     backend calls
	storage_operation_duration_seconds{operation}
	errors_total{operation,type}
	existence_cache_entries, existence_cache_evictions_total

Collector satisfies types.MetricsCollector, so the cache, resolver and
generator report into it directly. Handler mounts the exposition on an
existing mux; Start runs a standalone server with /metrics, /health and
/debug/operations. A disabled collector accepts every call and records
nothing.
*/
package metrics
