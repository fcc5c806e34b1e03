package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/metrics"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket receiving points.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes allocation and crew activity to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAllocation writes a finalization point.
func (s *InfluxSink) RecordAllocation(o coremetrics.AllocationOutcome) error {
	p := write.NewPointWithMeasurement("allocation_finalization").
		AddTag("journey_id", o.JourneyID).
		AddTag("reason", o.Reason).
		AddTag("written", strconv.FormatBool(o.Written > 0))
	if o.OperatorID != "" {
		p = p.AddTag("operator_id", o.OperatorID)
	}
	p = p.AddField("seats", o.Seats).
		AddField("vehicles", o.Vehicles).
		AddField("rows", o.Written).
		SetTime(o.Time)
	return s.write(p)
}

// RecordRemoval writes a vehicle removal point.
func (s *InfluxSink) RecordRemoval(o coremetrics.RemovalOutcome) error {
	p := write.NewPointWithMeasurement("vehicle_removal").
		AddTag("journey_id", o.JourneyID).
		AddTag("vehicle_id", o.VehicleID).
		AddTag("conflict", strconv.FormatBool(o.Conflict)).
		AddField("moved", o.Moved).
		SetTime(o.Time)
	return s.write(p)
}

// RecordCrew writes a crew action point.
func (s *InfluxSink) RecordCrew(o coremetrics.CrewOutcome) error {
	p := write.NewPointWithMeasurement("crew_action").
		AddTag("journey_id", o.JourneyID).
		AddTag("vehicle_id", o.VehicleID).
		AddTag("action", o.Action).
		AddField("count", 1).
		SetTime(o.Time)
	return s.write(p)
}

// RecordSweep writes a sweep run summary.
func (s *InfluxSink) RecordSweep(r coremetrics.SweepRun) error {
	p := write.NewPointWithMeasurement("sweep_run").
		AddTag("component", "t24_sweep").
		AddField("journeys", r.Journeys).
		AddField("confirmed", r.Confirmed).
		AddField("alerts", r.Alerts).
		AddField("downgrades", r.Downgrades).
		AddField("exceptions", r.Exceptions).
		AddField("failures", r.Failures).
		AddField("duration_ms", r.Duration.Milliseconds()).
		SetTime(r.Time)
	return s.write(p)
}

// RecordNotify writes a notification delivery point.
func (s *InfluxSink) RecordNotify(r coremetrics.NotifyResult) error {
	p := write.NewPointWithMeasurement("notification").
		AddTag("kind", r.Kind).
		AddTag("ok", strconv.FormatBool(r.OK)).
		AddField("count", 1).
		SetTime(time.Now())
	return s.write(p)
}
