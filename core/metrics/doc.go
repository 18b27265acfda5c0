// Package metrics defines the sinks a dispatch run is reported to. The
// Manager emits one DispatchEvent per solved request; sinks may also record
// recommendations, free-steam estimates and publish outcomes by implementing
// the optional recorder interfaces. Backends live in infra/metrics and are
// created by type through NewMetricsSink.
package metrics
