package telemetry

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"

	"github.com/ashwinyue/traintrack/internal/config"
)

const meterName = "github.com/ashwinyue/traintrack"

// Exporter 通过 OTLP/gRPC 推送指标
type Exporter struct {
	Recorder
	provider *sdkmetric.MeterProvider
}

// NewExporter 创建 OTLP 指标导出器
func NewExporter(ctx context.Context, app config.AppConfig, cfg config.TelemetryConfig) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("telemetry is disabled or endpoint not configured")
	}

	exp, err := otlpmetricgrpc.New(ctx, exporterOptions(app, cfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(app.Name),
			semconv.ServiceVersion(app.Version),
			semconv.DeploymentEnvironment(app.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	return NewExporterWithReader(sdkmetric.NewPeriodicReader(exp), res)
}

// exporterOptions 构造 OTLP/gRPC 导出器参数
func exporterOptions(app config.AppConfig, cfg config.TelemetryConfig) []otlpmetricgrpc.Option {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		otlpmetricgrpc.WithDialOption(grpc.WithUserAgent(app.Name + "/" + app.Version)),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return opts
}

// NewExporterWithReader 使用给定 reader 创建导出器，测试时传入 ManualReader
func NewExporterWithReader(reader sdkmetric.Reader, res *resource.Resource) (*Exporter, error) {
	opts := []sdkmetric.Option{sdkmetric.WithReader(reader)}
	if res != nil {
		opts = append(opts, sdkmetric.WithResource(res))
	}
	provider := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(provider)

	rec, err := NewRecorder(provider.Meter(meterName))
	if err != nil {
		provider.Shutdown(context.Background())
		return nil, err
	}
	return &Exporter{Recorder: rec, provider: provider}, nil
}

// Close 刷新并关闭导出器
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}

// Setup 按配置创建记录器
// 未启用或导出器创建失败时退化为 Noop，返回的 close 总是可调用。
func Setup(ctx context.Context, cfg *config.Config) (Recorder, func(context.Context) error) {
	if !cfg.Telemetry.Enabled {
		return Noop{}, func(context.Context) error { return nil }
	}

	exp, err := NewExporter(ctx, cfg.App, cfg.Telemetry)
	if err != nil {
		log.Printf("Warning: telemetry disabled: %v", err)
		return Noop{}, func(context.Context) error { return nil }
	}
	log.Printf("Telemetry exporting to %s", cfg.Telemetry.Endpoint)
	return exp, exp.Close
}
