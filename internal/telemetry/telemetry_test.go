package telemetry

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/doceval/internal/config"
)

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), config.TelemetryConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}

	if tel.IsEnabled() {
		t.Error("IsEnabled() = true for disabled config")
	}
	if tel.IsDegraded() {
		t.Error("IsDegraded() = true for disabled config")
	}

	// No-op providers must still be usable.
	if tel.Tracer("doceval-test") == nil {
		t.Error("Tracer() = nil, want no-op tracer")
	}
	if tel.Meter("doceval-test") == nil {
		t.Error("Meter() = nil, want no-op meter")
	}

	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v, want nil", err)
	}
}

func TestNew_EnabledWithoutEndpoint(t *testing.T) {
	_, err := New(context.Background(), config.TelemetryConfig{Enabled: true}, "test")
	if err == nil {
		t.Fatal("New() error = nil, want error for missing endpoint")
	}
}

func TestNew_EnabledLocalEndpoint(t *testing.T) {
	// OTLP gRPC exporters connect lazily, so creation succeeds without a
	// running collector.
	cfg := config.TelemetryConfig{
		Enabled:    true,
		Endpoint:   "localhost:4317",
		Protocol:   "grpc",
		Insecure:   true,
		SampleRate: 0.5,
		Metrics: config.MetricsConfig{
			Enabled:        true,
			ExportInterval: config.Duration(60_000_000_000),
		},
	}

	tel, err := New(context.Background(), cfg, "test")
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	if !tel.IsEnabled() {
		t.Error("IsEnabled() = false, want true")
	}
	if tel.IsDegraded() {
		t.Error("IsDegraded() = true, want false")
	}

	if err := tel.Shutdown(context.Background()); err != nil {
		t.Logf("Shutdown() flush error without collector (expected): %v", err)
	}
}

func TestStripScheme(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://otel.example.com:4318", "otel.example.com:4318"},
		{"http://localhost:4318", "localhost:4318"},
		{"localhost:4317", "localhost:4317"},
	}
	for _, tt := range tests {
		if got := stripScheme(tt.in); got != tt.want {
			t.Errorf("stripScheme(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
