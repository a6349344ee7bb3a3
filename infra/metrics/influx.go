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

	coremetrics "github.com/kilianp07/rosterd/core/metrics"
	"github.com/kilianp07/rosterd/infra/logger"
)

// InfluxSink writes roster events to an InfluxDB instance using the official
// client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
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

// RecordAuditRun writes the audit verdict as a measurement point.
func (s *InfluxSink) RecordAuditRun(ev coremetrics.AuditRunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("audit_run").
		AddTag("plan_id", ev.PlanID).
		AddTag("passed", strconv.FormatBool(ev.Failed == 0)).
		AddField("checks_passed", ev.Passed).
		AddField("checks_failed", ev.Failed).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSolve writes one solve attempt.
func (s *InfluxSink) RecordSolve(ev coremetrics.SolveEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("solve").
		AddTag("plan_id", ev.PlanID).
		AddTag("failed", strconv.FormatBool(ev.Failed)).
		AddField("seed", ev.Seed).
		AddField("tours", ev.Tours).
		AddField("assigned", ev.Assigned).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRepair writes one repair session action.
func (s *InfluxSink) RecordRepair(ev coremetrics.RepairEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("repair_action").
		AddTag("plan_id", ev.PlanID).
		AddTag("action", ev.Action).
		AddTag("strategy", ev.Strategy).
		AddTag("feasible", strconv.FormatBool(ev.Feasible)).
		AddField("churn", ev.Churn).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordLockContention writes one refused lock acquisition.
func (s *InfluxSink) RecordLockContention(ev coremetrics.LockContentionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("lock_contention").
		AddTag("tenant_id", strconv.FormatUint(uint64(ev.TenantID), 10)).
		AddTag("scheduling_unit_id", strconv.FormatUint(uint64(ev.SchedulingUnitID), 10)).
		AddField("holder", ev.Holder).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
