package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordSpans installs a provider that keeps ended spans in memory.
func recordSpans(t *testing.T, ratio float64) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := newTracerProvider(ratio, sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func attrValue(attrs []attribute.KeyValue, key string) (string, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value.Emit(), true
		}
	}
	return "", false
}

func TestStartSpanTagsConnection(t *testing.T) {
	rec := recordSpans(t, 1)

	ctx := WithCorrelation(context.Background(), "conn-1")
	_, span := StartSpan(ctx, "socketio.run", attribute.String("sid", "abc"))
	SetSpanSuccess(span)
	span.End()

	_, plain := StartSpan(context.Background(), "socketio.handshake")
	RecordError(plain, errors.New("boom"))
	plain.End()

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}

	run := spans[0]
	if run.Name() != "socketio.run" || run.InstrumentationScope().Name != TracerName {
		t.Errorf("span = %s from %s", run.Name(), run.InstrumentationScope().Name)
	}
	if v, _ := attrValue(run.Attributes(), "conn"); v != "conn-1" {
		t.Errorf("conn attribute = %q", v)
	}
	if v, _ := attrValue(run.Attributes(), "sid"); v != "abc" {
		t.Errorf("sid attribute = %q", v)
	}
	if run.Status().Code != codes.Ok {
		t.Errorf("status = %v, want ok", run.Status().Code)
	}

	failed := spans[1]
	if _, ok := attrValue(failed.Attributes(), "conn"); ok {
		t.Error("conn attribute set without a connection id")
	}
	if failed.Status().Code != codes.Error || failed.Status().Description != "boom" {
		t.Errorf("status = %+v, want error boom", failed.Status())
	}
	if len(failed.Events()) != 1 {
		t.Errorf("recorded %d events, want the error event", len(failed.Events()))
	}
}

func TestRecordErrorNil(t *testing.T) {
	rec := recordSpans(t, 1)
	_, span := StartSpan(context.Background(), "noop")
	RecordError(span, nil)
	span.End()

	if got := rec.Ended()[0].Status().Code; got != codes.Unset {
		t.Errorf("status = %v, want unset", got)
	}
}

func TestSampleRatioZeroDropsRootSpans(t *testing.T) {
	rec := recordSpans(t, 0)
	_, span := StartSpan(context.Background(), "socketio.connect")
	span.End()

	if n := len(rec.Ended()); n != 0 {
		t.Errorf("recorded %d spans at ratio 0", n)
	}
}

func TestTracingConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "false")
	t.Setenv("SOCKETIO_TRACE_SAMPLE_RATIO", "0.25")

	cfg, err := TracingConfigFromEnv("sioclient", "v1")
	if err != nil {
		t.Fatalf("TracingConfigFromEnv: %v", err)
	}
	if cfg.Endpoint != "collector:4317" || cfg.Insecure || cfg.SampleRatio != 0.25 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ServiceName != "sioclient" || cfg.ServiceVersion != "v1" {
		t.Errorf("service = %s %s", cfg.ServiceName, cfg.ServiceVersion)
	}

	for _, bad := range []string{"2", "-0.1", "half"} {
		t.Setenv("SOCKETIO_TRACE_SAMPLE_RATIO", bad)
		if _, err := TracingConfigFromEnv("sioclient", "v1"); err == nil {
			t.Errorf("ratio %q accepted", bad)
		}
	}
}

func TestInitTracingWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{ServiceName: "sioclient"})
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}
