// Package telemetry 记录观测值写入和运行状态迁移的计数指标
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 观测值种类
const (
	KindLoss   = "loss"
	KindMetric = "metric"
)

// Recorder 业务指标记录器
type Recorder interface {
	// ObservationsAccepted 记录成功写入的观测值条数
	ObservationsAccepted(ctx context.Context, kind string, n int)
	// ObservationsRejected 记录被拒绝的写入，reason 为错误分类
	ObservationsRejected(ctx context.Context, kind, reason string)
	// RunTransitioned 记录运行进入终态
	RunTransitioned(ctx context.Context, status string)
}

type meterRecorder struct {
	accepted    metric.Int64Counter
	rejected    metric.Int64Counter
	transitions metric.Int64Counter
}

// NewRecorder 基于 meter 创建记录器
func NewRecorder(meter metric.Meter) (Recorder, error) {
	accepted, err := meter.Int64Counter(
		"traintrack_observations_total",
		metric.WithDescription("Observations stored"),
		metric.WithUnit("{observation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating observations counter: %w", err)
	}

	rejected, err := meter.Int64Counter(
		"traintrack_observations_rejected_total",
		metric.WithDescription("Observation writes rejected"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}

	transitions, err := meter.Int64Counter(
		"traintrack_run_transitions_total",
		metric.WithDescription("Training runs moved to a terminal status"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transitions counter: %w", err)
	}

	return &meterRecorder{
		accepted:    accepted,
		rejected:    rejected,
		transitions: transitions,
	}, nil
}

func (r *meterRecorder) ObservationsAccepted(ctx context.Context, kind string, n int) {
	if n <= 0 {
		return
	}
	r.accepted.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
}

func (r *meterRecorder) ObservationsRejected(ctx context.Context, kind, reason string) {
	r.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("reason", reason),
	))
}

func (r *meterRecorder) RunTransitioned(ctx context.Context, status string) {
	r.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// Noop 不记录任何指标
type Noop struct{}

func (Noop) ObservationsAccepted(context.Context, string, int)   {}
func (Noop) ObservationsRejected(context.Context, string, string) {}
func (Noop) RunTransitioned(context.Context, string)             {}
