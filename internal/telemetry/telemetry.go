package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
	"go.opentelemetry.io/otel/trace"

	"autosub/internal/config"
	"autosub/internal/logging"
)

// InstrumentationName scopes every tracer and meter autosub creates.
const InstrumentationName = "autosub"

// Provider owns the SDK providers installed by Setup.
type Provider struct {
	tracer *sdktrace.TracerProvider
	meter  *sdkmetric.MeterProvider
	reader *sdkmetric.ManualReader
	logger *slog.Logger
}

// Setup installs global trace and meter providers according to cfg. When
// telemetry is disabled it returns a Provider whose Shutdown is a no-op and
// leaves the global no-op providers in place.
func Setup(ctx context.Context, cfg config.Telemetry, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String("component", "telemetry"))
	if !cfg.Enabled {
		return &Provider{logger: logger}, nil
	}

	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = InstrumentationName
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(name)))
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
		exportOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if cfg.OTLPInsecure {
			exportOpts = append(exportOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, exportOpts...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
		logger.Debug("trace exporter configured", logging.String("exporter", "otlp"), logging.String("endpoint", endpoint))
	}
	if cfg.Stdout {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithSyncer(exporter))
		logger.Debug("trace exporter configured", logging.String("exporter", "stdout"))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return &Provider{tracer: tp, meter: mp, reader: reader, logger: logger}, nil
}

// Tracer returns the autosub tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// Counters collects the current value of every integer sum instrument,
// keyed by instrument name plus its attributes (e.g.
// "autosub.correction.batches{outcome=corrected}").
func (p *Provider) Counters(ctx context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	if p == nil || p.reader == nil {
		return out, nil
	}
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				out[counterKey(m.Name, dp.Attributes)] += dp.Value
			}
		}
	}
	return out, nil
}

func counterKey(name string, attrs attribute.Set) string {
	if attrs.Len() == 0 {
		return name
	}
	parts := make([]string, 0, attrs.Len())
	iter := attrs.Iter()
	for iter.Next() {
		kv := iter.Attribute()
		parts = append(parts, string(kv.Key)+"="+kv.Value.Emit())
	}
	return name + "{" + strings.Join(parts, ",") + "}"
}

// Shutdown logs the final counter values at debug level and flushes both
// providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tracer == nil {
		return nil
	}
	if counters, err := p.Counters(ctx); err == nil && len(counters) > 0 {
		attrs := make([]any, 0, len(counters))
		for k, v := range counters {
			attrs = append(attrs, logging.Int64(k, v))
		}
		p.logger.Debug("telemetry counters", attrs...)
	}
	var errs []error
	if err := p.meter.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := p.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
