package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "emotitle"

// Metrics holds the daemon's metric instruments. All counters are
// cumulative and safe for concurrent use; a nil *Metrics records nothing.
type Metrics struct {
	DecorationsApplied metric.Int64Counter
	RestoresIssued     metric.Int64Counter
	RestoresDeferred   metric.Int64Counter
	RestoresFailed     metric.Int64Counter
	CommandsFailed     metric.Int64Counter
	Snapshots          metric.Int64Counter
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.DecorationsApplied, err = meter.Int64Counter("emotitle.decorations.applied",
		metric.WithDescription("Decorations applied, partitioned by target and mode"))
	if err != nil {
		return nil, err
	}

	m.RestoresIssued, err = meter.Int64Counter("emotitle.restores.issued",
		metric.WithDescription("Title restores sent to the multiplexer, partitioned by target"))
	if err != nil {
		return nil, err
	}

	m.RestoresDeferred, err = meter.Int64Counter("emotitle.restores.deferred",
		metric.WithDescription("Restores left queued after a drain because their target did not resolve"))
	if err != nil {
		return nil, err
	}

	m.RestoresFailed, err = meter.Int64Counter("emotitle.restores.failed",
		metric.WithDescription("Restores the multiplexer rejected; each is requeued for the next poll"))
	if err != nil {
		return nil, err
	}

	m.CommandsFailed, err = meter.Int64Counter("emotitle.commands.failed",
		metric.WithDescription("Decoration requests rejected or failed"))
	if err != nil {
		return nil, err
	}

	m.Snapshots, err = meter.Int64Counter("emotitle.snapshots",
		metric.WithDescription("Topology snapshots ingested, partitioned by channel (panes, tabs)"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordDecoration records an applied decoration.
func (m *Metrics) RecordDecoration(ctx context.Context, target, mode string) {
	if m == nil {
		return
	}
	m.DecorationsApplied.Add(ctx, 1, metric.WithAttributes(
		attribute.String("target", target),
		attribute.String("mode", mode),
	))
}

// RecordRestore records an issued restore.
func (m *Metrics) RecordRestore(ctx context.Context, target string) {
	if m == nil {
		return
	}
	m.RestoresIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("target", target)))
}

// RecordRestoreFailure records a restore the multiplexer rejected.
func (m *Metrics) RecordRestoreFailure(ctx context.Context, target string) {
	if m == nil {
		return
	}
	m.RestoresFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("target", target)))
}

// RecordDeferred records restores still queued after a drain.
func (m *Metrics) RecordDeferred(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RestoresDeferred.Add(ctx, int64(n))
}

// RecordCommandFailure records a failed decoration request.
func (m *Metrics) RecordCommandFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.CommandsFailed.Add(ctx, 1)
}

// RecordSnapshot records an ingested snapshot on the given channel.
func (m *Metrics) RecordSnapshot(ctx context.Context, channel string) {
	if m == nil {
		return
	}
	m.Snapshots.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", channel)))
}
