// Package metrics defines the observability sink used by the allocation, crew
// and sweep components.
//
// A sink must implement MetricsSink. It may additionally implement any of
// CrewRecorder, RemovalRecorder, SweepRecorder and NotifyRecorder; callers
// check for those with a type assertion. Sinks are built from configuration
// through the registry in factory.go, and several sinks are combined with
// MultiSink.
package metrics
