package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func newTestLogger(level string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := &Config{Level: level, Format: FormatJSON}
	return newLogger(cfg, "test-svc", &buf), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid json log line %q: %v", line, err)
	}
	return m
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	if l := NewFromEnv("env-svc"); l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestJSONOutput(t *testing.T) {
	l, buf := newTestLogger("info")
	l.Info("dispatched", Fields("targets", 3))

	m := decodeLine(t, buf)
	if m["message"] != "dispatched" {
		t.Errorf("message = %v", m["message"])
	}
	if m[FieldService] != "test-svc" {
		t.Errorf("service = %v", m[FieldService])
	}
	if m["targets"] != float64(3) {
		t.Errorf("targets = %v", m["targets"])
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newTestLogger("warn")
	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn output, got %q", buf.String())
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	l, buf := newTestLogger("bogus")
	l.Debug("hidden")
	l.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestWithComponentAndFields(t *testing.T) {
	l, buf := newTestLogger("debug")
	l.WithComponent("stream").WithFields(map[string]interface{}{"width": 8}).Debug("started")

	m := decodeLine(t, buf)
	if m[FieldComponent] != "stream" {
		t.Errorf("component = %v", m[FieldComponent])
	}
	if m["width"] != float64(8) {
		t.Errorf("width = %v", m["width"])
	}
}

func TestWithError(t *testing.T) {
	l, buf := newTestLogger("info")
	l.WithError(errors.New("boom")).Error("failed")

	m := decodeLine(t, buf)
	if m[FieldError] != "boom" {
		t.Errorf("error = %v", m[FieldError])
	}
}

func TestWithContext(t *testing.T) {
	l, buf := newTestLogger("info")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = ContextWithRequestID(ctx, "req-1")

	l.WithContext(ctx).Info("hello")

	m := decodeLine(t, buf)
	if m[FieldTraceID] != traceID.String() {
		t.Errorf("trace_id = %v", m[FieldTraceID])
	}
	if m[FieldSpanID] != spanID.String() {
		t.Errorf("span_id = %v", m[FieldSpanID])
	}
	if m[FieldRequestID] != "req-1" {
		t.Errorf("request_id = %v", m[FieldRequestID])
	}
}

func TestWithContextEmpty(t *testing.T) {
	l, buf := newTestLogger("info")
	l.WithContext(context.Background()).Info("hello")

	m := decodeLine(t, buf)
	if _, ok := m[FieldTraceID]; ok {
		t.Error("expected no trace_id without an active span")
	}
}

func TestGlobalLogger(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	l, buf := newTestLogger("info")
	SetGlobalLogger(l)
	if GetGlobalLogger() != l {
		t.Fatal("expected global logger to be replaced")
	}
	WithComponent("pusher").Info("via global")
	if !strings.Contains(buf.String(), "via global") {
		t.Errorf("expected global output, got %q", buf.String())
	}
}

func TestInit(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	Init(Config{Service: "pushd", Format: FormatJSON, Output: "stderr"})
	if gl := GetGlobalLogger(); gl == nil || gl.service != "pushd" {
		t.Fatalf("unexpected global logger after Init: %+v", gl)
	}
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != FormatConsole || cfg.Output != "stdout" || !cfg.Timestamp {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad level", Config{Level: "loud", Format: FormatJSON, Output: "stdout"}},
		{"bad format", Config{Level: "info", Format: "xml", Output: "stdout"}},
		{"bad output", Config{Level: "info", Format: FormatJSON, Output: "/var/log/x"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestFields(t *testing.T) {
	m := Fields("a", 1, 2, "dropped", "b")
	if len(m) != 1 || m["a"] != 1 {
		t.Errorf("Fields = %v", m)
	}
}

func TestErrorFields(t *testing.T) {
	m := ErrorFields("send", errors.New("timeout"))
	if m[FieldOperation] != "send" || m[FieldError] != "timeout" {
		t.Errorf("ErrorFields = %v", m)
	}
	if _, ok := ErrorFields("send", nil)[FieldError]; ok {
		t.Error("expected no error key for nil error")
	}
}

func TestDurationFields(t *testing.T) {
	m := DurationFields("dispatch", 1500*time.Millisecond)
	if m[FieldDuration] != int64(1500) {
		t.Errorf("duration = %v", m[FieldDuration])
	}
}

func TestMergeWithError(t *testing.T) {
	m := MergeWithError(nil, errors.New("x"))
	if m[FieldError] != "x" {
		t.Errorf("MergeWithError = %v", m)
	}
}

func TestOutputWriter(t *testing.T) {
	if outputWriter("stderr") != os.Stderr {
		t.Error("expected stderr")
	}
	if outputWriter("anything") != os.Stdout {
		t.Error("expected stdout default")
	}
}
