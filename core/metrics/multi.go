package metrics

// MultiSink fans records out to several sinks. Optional recorders are only
// forwarded to the sinks implementing them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAllocation forwards the outcome to all sinks, returning the first error encountered.
func (m *MultiSink) RecordAllocation(o AllocationOutcome) error {
	for _, s := range m.Sinks {
		if err := s.RecordAllocation(o); err != nil {
			return err
		}
	}
	return nil
}

// RecordRemoval forwards removal outcomes.
func (m *MultiSink) RecordRemoval(o RemovalOutcome) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RemovalRecorder); ok {
			if err := rec.RecordRemoval(o); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordCrew forwards crew outcomes.
func (m *MultiSink) RecordCrew(o CrewOutcome) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(CrewRecorder); ok {
			if err := rec.RecordCrew(o); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordSweep forwards sweep runs.
func (m *MultiSink) RecordSweep(r SweepRun) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(SweepRecorder); ok {
			if err := rec.RecordSweep(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordNotify forwards notification results.
func (m *MultiSink) RecordNotify(r NotifyResult) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(NotifyRecorder); ok {
			if err := rec.RecordNotify(r); err != nil {
				return err
			}
		}
	}
	return nil
}
