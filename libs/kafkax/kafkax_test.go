package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestExtractEventMeta_FallsBackToKeyAndTopic(t *testing.T) {
	meta := ExtractEventMeta(kafka.Message{Topic: "booking.requested.v1", Key: []byte("req-9")})
	if meta.EventID != "req-9" || meta.EventType != "booking.requested.v1" {
		t.Fatalf("unexpected meta %+v", meta)
	}

	msg := kafka.Message{Topic: "t", Key: []byte("k"), Headers: MetaHeaders(EventMeta{EventID: "evt-1", EventType: "booking.attempt.completed.v1"})}
	meta = ExtractEventMeta(msg)
	if meta.EventID != "evt-1" || meta.EventType != "booking.attempt.completed.v1" {
		t.Fatalf("headers should win over key/topic, got %+v", meta)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" a:9092, ,b:9092,")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
}

func TestTraceHeadersRoundTrip(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x0a, 0x0b, 0x0c, 0x01},
		SpanID:     trace.SpanID{0x01, 0x02},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := InjectTraceHeaders(ctx, MetaHeaders(EventMeta{EventID: "e", EventType: "t"}))
	if HeaderValue(headers, "traceparent") == "" {
		t.Fatalf("expected traceparent header, got %v", headers)
	}
	if len(headers) != 3 {
		t.Fatalf("expected meta headers plus traceparent, got %d", len(headers))
	}

	out := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), kafka.Message{Headers: headers}))
	if out.TraceID() != sc.TraceID() {
		t.Fatalf("trace id lost: got %s want %s", out.TraceID(), sc.TraceID())
	}
}

func TestReadyCheck_NoBrokers(t *testing.T) {
	if err := ReadyCheck(" , ")(context.Background()); err == nil {
		t.Fatalf("expected error without brokers")
	}
}
