package jobqueue

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics holds the counters the engine emits. It is observability only:
// nothing in the engine branches on a metric value, so a Metrics built on
// a no-op MeterProvider (NewNoopMetrics) is a correct, inert default.
type Metrics struct {
	picked    metric.Int64Counter
	completed metric.Int64Counter
	retried   metric.Int64Counter
	dead      metric.Int64Counter
	reclaimed metric.Int64Counter
}

// NewMetrics builds engine counters from the given meter. Pass
// noop.NewMeterProvider().Meter("") to get an inert Metrics.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.picked, err = meter.Int64Counter("queuectl.jobs.picked",
		metric.WithDescription("jobs claimed by pick-and-lock")); err != nil {
		return nil, err
	}
	if m.completed, err = meter.Int64Counter("queuectl.jobs.completed",
		metric.WithDescription("jobs that finished successfully")); err != nil {
		return nil, err
	}
	if m.retried, err = meter.Int64Counter("queuectl.jobs.retried",
		metric.WithDescription("failed attempts that were requeued with backoff")); err != nil {
		return nil, err
	}
	if m.dead, err = meter.Int64Counter("queuectl.jobs.dead",
		metric.WithDescription("jobs moved to the dead-letter state")); err != nil {
		return nil, err
	}
	if m.reclaimed, err = meter.Int64Counter("queuectl.jobs.reclaimed",
		metric.WithDescription("stale processing jobs reclaimed by the recovery sweep")); err != nil {
		return nil, err
	}
	return m, nil
}

// NewNoopMetrics returns a Metrics backed by the no-op meter provider.
func NewNoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter("queuectl"))
	return m
}

func (m *Metrics) jobPicked(ctx context.Context, priority int) {
	if m == nil {
		return
	}
	m.picked.Add(ctx, 1, metric.WithAttributes(attribute.Int("priority", priority)))
}

func (m *Metrics) jobCompleted(ctx context.Context) {
	if m == nil {
		return
	}
	m.completed.Add(ctx, 1)
}

func (m *Metrics) jobRetried(ctx context.Context) {
	if m == nil {
		return
	}
	m.retried.Add(ctx, 1)
}

func (m *Metrics) jobDead(ctx context.Context) {
	if m == nil {
		return
	}
	m.dead.Add(ctx, 1)
}

func (m *Metrics) jobsReclaimed(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.reclaimed.Add(ctx, int64(n))
}
