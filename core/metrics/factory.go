package metrics

import "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/factory"

var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink adds a metrics sink factory identified by name.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkTypes lists the registered sink types.
func SinkTypes() []string { return sinkRegistry.Types() }

// NewMetricsSink builds the configured sinks. No config records nothing and
// several sinks are fanned out through a MultiSink.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	return factory.Assemble(sinkRegistry, cfgs,
		func() MetricsSink { return NopSink{} },
		func(sinks ...MetricsSink) MetricsSink { return NewMultiSink(sinks...) })
}
