package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
)

func TestTelemetrySetup(t *testing.T) {
	tel, err := Setup("test-service", "test")
	if err != nil {
		t.Fatalf("Failed to setup telemetry: %v", err)
	}

	// Verify providers are set
	if otel.GetTracerProvider() == nil {
		t.Error("Tracer provider not set")
	}
	if otel.GetMeterProvider() == nil {
		t.Error("Meter provider not set")
	}

	// Test GetTracer/GetMeter
	tracer := GetTracer("test-tracer")
	if tracer == nil {
		t.Error("Failed to get tracer")
	}

	meter := GetMeter("test-meter")
	if meter == nil {
		t.Error("Failed to get meter")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := tel.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestMetricsHolderGauges(t *testing.T) {
	m := GetGlobalMetrics()

	m.SetOpenOrders("ADA", 3)
	m.SetInventoryQty("ADA", 30.5)
	m.SetTriggerState("ADA", TriggerGaugeBuy)

	if got := m.GetOpenOrders()["ADA"]; got != 3 {
		t.Errorf("open orders gauge = %d, want 3", got)
	}
	if got := m.GetInventoryQty()["ADA"]; got != 30.5 {
		t.Errorf("inventory gauge = %v, want 30.5", got)
	}

	m.ForgetSymbol("ADA")
	if _, ok := m.GetOpenOrders()["ADA"]; ok {
		t.Error("ForgetSymbol did not drop gauge state")
	}
}
