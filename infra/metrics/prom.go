package metrics

import (
	"errors"
	"strconv"

	coremetrics "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records allocation, crew and sweep activity in Prometheus metrics.
type PromSink struct {
	finalizations *prometheus.CounterVec
	seats         prometheus.Counter
	removals      *prometheus.CounterVec
	moved         prometheus.Counter
	crew          *prometheus.CounterVec
	sweepItems    *prometheus.CounterVec
	sweepDuration prometheus.Histogram
	sweepJourneys prometheus.Gauge
	notifications *prometheus.CounterVec
}

// NewPromSink registers metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already present on the registerer are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.finalizations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pace_allocation_finalizations_total",
		Help: "Journey finalizations by outcome reason",
	}, []string{"reason", "written"})); err != nil {
		return nil, err
	}
	if s.seats, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pace_allocation_written_seats_total",
		Help: "Seats written by finalizations that changed the allocation",
	})); err != nil {
		return nil, err
	}
	if s.removals, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pace_vehicle_removals_total",
		Help: "Vehicle removals by outcome",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if s.moved, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pace_vehicle_removal_moved_parties_total",
		Help: "Parties re-housed by vehicle removals",
	})); err != nil {
		return nil, err
	}
	if s.crew, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pace_crew_actions_total",
		Help: "Lead crew actions",
	}, []string{"action"})); err != nil {
		return nil, err
	}
	if s.sweepItems, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pace_sweep_items_total",
		Help: "Items handled by the T-24 sweep",
	}, []string{"item"})); err != nil {
		return nil, err
	}
	if s.sweepDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pace_sweep_duration_seconds",
		Help:    "Duration of T-24 sweep runs",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if s.sweepJourneys, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pace_sweep_last_journeys",
		Help: "Journeys in the window of the last sweep",
	})); err != nil {
		return nil, err
	}
	if s.notifications, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pace_notifications_total",
		Help: "Notification deliveries by kind and result",
	}, []string{"kind", "result"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordAllocation increments the finalization counter.
func (s *PromSink) RecordAllocation(o coremetrics.AllocationOutcome) error {
	s.finalizations.WithLabelValues(o.Reason, strconv.FormatBool(o.Written > 0)).Inc()
	if o.Written > 0 {
		s.seats.Add(float64(o.Seats))
	}
	return nil
}

// RecordRemoval counts a vehicle removal.
func (s *PromSink) RecordRemoval(o coremetrics.RemovalOutcome) error {
	outcome := "repacked"
	switch {
	case o.Conflict:
		outcome = "conflict"
	case o.Failed:
		outcome = "error"
	}
	s.removals.WithLabelValues(outcome).Inc()
	s.moved.Add(float64(o.Moved))
	return nil
}

// RecordCrew counts a crew action.
func (s *PromSink) RecordCrew(o coremetrics.CrewOutcome) error {
	s.crew.WithLabelValues(o.Action).Inc()
	return nil
}

// RecordSweep records the counts and duration of a sweep run.
func (s *PromSink) RecordSweep(r coremetrics.SweepRun) error {
	s.sweepItems.WithLabelValues("confirmed").Add(float64(r.Confirmed))
	s.sweepItems.WithLabelValues("alerts").Add(float64(r.Alerts))
	s.sweepItems.WithLabelValues("downgrades").Add(float64(r.Downgrades))
	s.sweepItems.WithLabelValues("exceptions").Add(float64(r.Exceptions))
	s.sweepItems.WithLabelValues("failures").Add(float64(r.Failures))
	s.sweepDuration.Observe(r.Duration.Seconds())
	s.sweepJourneys.Set(float64(r.Journeys))
	return nil
}

// RecordNotify counts a notification delivery.
func (s *PromSink) RecordNotify(r coremetrics.NotifyResult) error {
	result := "ok"
	if !r.OK {
		result = "failed"
	}
	s.notifications.WithLabelValues(r.Kind, result).Inc()
	return nil
}
