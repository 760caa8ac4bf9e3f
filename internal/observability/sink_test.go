package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/evmts/smithers/internal/scheduler"
)

func TestSinkPairsStartAndEndIntoMetrics(t *testing.T) {
	m := NewMetrics(true)
	s := NewSink(noop.NewTracerProvider().Tracer("test"), m)

	start := time.Now()
	s.Emit(scheduler.Event{
		Type:      "node:execute:start",
		NodePath:  "ROOT/claude[0]",
		Timestamp: start,
		Data:      map[string]any{"nodeType": "claude"},
	})
	s.Emit(scheduler.Event{
		Type:      "node:execute:end",
		NodePath:  "ROOT/claude[0]",
		Timestamp: start.Add(2 * time.Second),
		Data:      map[string]any{"status": "complete"},
	})

	if len(s.spans) != 0 {
		t.Fatalf("expected span map drained after end event, got %d entries", len(s.spans))
	}

	got := testutil.ToFloat64(m.nodeExecutions.WithLabelValues("claude", "complete"))
	if got != 1 {
		t.Fatalf("expected one recorded execution, got %v", got)
	}
}

func TestSinkNilMetricsIsNoop(t *testing.T) {
	s := NewSink(noop.NewTracerProvider().Tracer("test"), nil)
	s.Emit(scheduler.Event{Type: "node:execute:start", NodePath: "ROOT/claude[0]", Data: map[string]any{"nodeType": "claude"}})
	s.Emit(scheduler.Event{Type: "node:execute:end", NodePath: "ROOT/claude[0]", Data: map[string]any{"status": "complete"}})
	s.Emit(scheduler.Event{Type: "frame:render"})
}

func TestSinkIgnoresUnknownEventTypes(t *testing.T) {
	s := NewSink(noop.NewTracerProvider().Tracer("test"), NewMetrics(true))
	s.Emit(scheduler.Event{Type: "state:change"})
}
