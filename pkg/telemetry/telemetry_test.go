package telemetry

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"no service name", func(c *Config) { c.ServiceName = "" }, true},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"sampling above one", func(c *Config) { c.Tracing.SamplingRate = 1.5 }, true},
		{"metrics without address", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.ListenAddress = ""
		}, true},
		{"disabled metrics without address", func(c *Config) {
			c.Metrics.Enabled = false
			c.Metrics.ListenAddress = ""
		}, false},
		{"bad exporter", func(c *Config) { c.Tracing.Exporter = "zipkin" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoggerLevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LoggingConfig{Level: "warn", Format: "json"})

	logger.Zerolog().Info().Msg("hidden")
	logger.NewComponentLogger("scanner").WithScanID("scan-1").WithAgent("/agents/fs.sh").Zerolog().Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message logged at warn level")
	}
	for _, want := range []string{`"message":"shown"`, `"component":"scanner"`, `"scan_id":"scan-1"`, `"agent":"/agents/fs.sh"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %s", out, want)
		}
	}
}

func TestLoggerWithField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LoggingConfig{Level: "info", Format: "json"})

	logger.WithField("dir", "/agents").Zerolog().Info().Msg("scanned")
	if !strings.Contains(buf.String(), `"dir":"/agents"`) {
		t.Errorf("output %q does not contain dir field", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug").String() != "debug" {
		t.Error("debug not parsed")
	}
	if ParseLevel("unknown").String() != "info" {
		t.Error("unknown level should default to info")
	}
}

func TestMetricsDisabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{})
	m.RecordScan("ok", time.Second)
	m.RecordProbe(OutcomeAgent, time.Millisecond)
	m.RecordRuleStored()
	m.RecordRuleRejected("DUPLICATE_TYPE")
	m.SetRegistrySize(3)

	if m.Gatherer() != nil {
		t.Error("disabled metrics should have no gatherer")
	}

	var nilMetrics *Metrics
	nilMetrics.RecordRuleStored()
	nilMetrics.SetRegistrySize(1)
}

func TestMetricsEnabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, Namespace: "resrules", ListenAddress: ":0"})

	m.RecordScan("ok", 20*time.Millisecond)
	m.RecordProbe(OutcomeAgent, time.Millisecond)
	m.RecordProbe(OutcomeAgent, time.Millisecond)
	m.RecordProbe(OutcomeNotAgent, time.Millisecond)
	m.RecordRuleStored()
	m.RecordRuleRejected("RESERVED_TYPE")
	m.SetRegistrySize(7)

	if got := testutil.ToFloat64(m.probes.WithLabelValues(OutcomeAgent)); got != 2 {
		t.Errorf("agent probes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.rulesRejected.WithLabelValues("RESERVED_TYPE")); got != 1 {
		t.Errorf("rejected rules = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.registrySize); got != 7 {
		t.Errorf("registry size = %v, want 7", got)
	}

	srv := m.NewMetricsServer()
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics endpoint returned %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "resrules_rules_stored_total 1") {
		t.Errorf("metrics output missing counter:\n%s", rec.Body.String())
	}
}

func TestNopTelemetry(t *testing.T) {
	tel := Nop()

	ctx, span := tel.Tracer.StartScanSpan(context.Background(), "scan-1", "/agents")
	_, child := tel.Tracer.StartProbeSpan(ctx, "/agents/fs.sh")
	RecordError(child, errors.New("boom"))
	RecordError(child, nil)
	child.End()
	RecordSuccess(span)
	span.End()

	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestNewTracerUnsupportedExporter(t *testing.T) {
	_, err := NewTracer(TracingConfig{Enabled: true, Exporter: "zipkin", SamplingRate: 1}, "resrules", "test")
	if err == nil {
		t.Error("expected error for unsupported exporter")
	}
}

func TestNewTracerWithoutExporter(t *testing.T) {
	tracer, err := NewTracer(TracingConfig{Enabled: true, Exporter: "none", SamplingRate: 1}, "resrules", "test")
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}

	_, span := tracer.StartScanSpan(context.Background(), "scan-1", "/agents")
	if !span.SpanContext().IsValid() {
		t.Error("expected a recording span")
	}
	span.End()

	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}
