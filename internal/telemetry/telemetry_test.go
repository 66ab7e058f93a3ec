package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"autosub/internal/config"
)

func TestSetupDisabledIsNoop(t *testing.T) {
	p, err := Setup(context.Background(), config.Telemetry{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	counters, err := p.Counters(context.Background())
	if err != nil || len(counters) != 0 {
		t.Fatalf("expected no counters, got %v (%v)", counters, err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestSetupCollectsCounters(t *testing.T) {
	prevMeter := otel.GetMeterProvider()
	prevTracer := otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetMeterProvider(prevMeter)
		otel.SetTracerProvider(prevTracer)
	})

	p, err := Setup(context.Background(), config.Telemetry{Enabled: true}, nil)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer p.Shutdown(context.Background())

	counter, err := otel.Meter(InstrumentationName).Int64Counter("autosub.test.batches")
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	counter.Add(context.Background(), 2, metric.WithAttributes(attribute.String("outcome", "corrected")))
	counter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", "corrected")))

	_, span := Tracer().Start(context.Background(), "extract")
	span.End()

	counters, err := p.Counters(context.Background())
	if err != nil {
		t.Fatalf("Counters: %v", err)
	}
	if got := counters["autosub.test.batches{outcome=corrected}"]; got != 3 {
		t.Fatalf("expected 3 corrected batches, got %d (%v)", got, counters)
	}
}
