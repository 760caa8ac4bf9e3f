package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/evmts/smithers/internal/scheduler"
)

// Sink implements scheduler.EventSink, turning the scheduler's ordered
// event stream (spec §5) into OpenTelemetry spans and Prometheus samples in
// one place. node:execute:start opens a span keyed by node path;
// node:execute:end closes it and records the matching histogram/counter
// observation. Grounded on the pairing hector's reasoning/extension_service.go
// does between its pre/post hook events, generalized here to real span
// lifecycles instead of log lines.
type Sink struct {
	tracer  trace.Tracer
	metrics *Metrics

	mu    sync.Mutex
	spans map[string]openSpan
}

type openSpan struct {
	span    trace.Span
	started time.Time
}

// NewSink builds a Sink. tracer may be the result of GetTracer after
// InitTracerProvider; metrics may be nil (NewMetrics(false)), in which case
// only tracing occurs.
func NewSink(tracer trace.Tracer, metrics *Metrics) *Sink {
	return &Sink{tracer: tracer, metrics: metrics, spans: make(map[string]openSpan)}
}

var _ scheduler.EventSink = (*Sink)(nil)

// Emit implements scheduler.EventSink.
func (s *Sink) Emit(ev scheduler.Event) {
	switch ev.Type {
	case "node:execute:start":
		s.startNode(ev)
	case "node:execute:end":
		s.endNode(ev)
	case "frame:render":
		s.metrics.recordFrameRender()
	case "loop:terminated":
		reason, _ := ev.Data["reason"].(string)
		s.metrics.recordLoopTerminated(reason)
	case "provider:acquire":
		s.recordAcquire(ev)
	case "provider:denied":
		reason, _ := ev.Data["reason"].(string)
		s.metrics.recordProviderDenial(ev.NodePath, reason)
	case "provider:usage":
		s.recordUsage(ev)
	}
}

// startNode opens a root span per node path; the scheduler's Event carries
// no context.Context (spec §5 defines the stream as plain structs), so
// spans here aren't children of the run's own context tree.
func (s *Sink) startNode(ev scheduler.Event) {
	nodeType, _ := ev.Data["nodeType"].(string)
	_, span := s.tracer.Start(context.Background(), "node.execute",
		trace.WithAttributes(
			attribute.String("node.path", ev.NodePath),
			attribute.String("node.type", nodeType),
			attribute.Int("scheduler.frame", ev.Frame),
		),
	)
	s.mu.Lock()
	s.spans[ev.NodePath] = openSpan{span: span, started: ev.Timestamp}
	s.mu.Unlock()
}

func (s *Sink) endNode(ev scheduler.Event) {
	s.mu.Lock()
	open, ok := s.spans[ev.NodePath]
	if ok {
		delete(s.spans, ev.NodePath)
	}
	s.mu.Unlock()

	status, _ := ev.Data["status"].(string)
	nodeType, _ := ev.Data["nodeType"].(string)
	var elapsed time.Duration
	if ok {
		elapsed = ev.Timestamp.Sub(open.started)
		open.span.SetAttributes(attribute.String("node.status", status))
		if status == "error" {
			open.span.SetStatus(codes.Error, status)
		} else {
			open.span.SetStatus(codes.Ok, status)
		}
		open.span.End()
	}
	s.metrics.recordNodeExecution(nodeType, status, elapsed.Seconds())
}

func (s *Sink) recordAcquire(ev scheduler.Event) {
	outcome, _ := ev.Data["outcome"].(string)
	s.metrics.recordProviderAcquire(ev.NodePath, outcome)
	if waitMs, ok := ev.Data["queueWaitMs"].(int64); ok {
		s.metrics.recordProviderQueueWait(float64(waitMs) / 1000)
	}
}

func (s *Sink) recordUsage(ev scheduler.Event) {
	inputTokens, _ := ev.Data["inputTokens"].(int)
	outputTokens, _ := ev.Data["outputTokens"].(int)
	costUSD, _ := ev.Data["costUSD"].(float64)
	s.metrics.recordProviderUsage(ev.NodePath, inputTokens, outputTokens, costUSD)
}
