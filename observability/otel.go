package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter turns each Event into an immediate (point-in-time) span. It is
// intended for workflows where node execution is separately traced via
// context-carried spans (see executor and workflow's WithTracer); this
// emitter records the lifecycle events themselves as spans of their own.
// Emit starts each span without a parent; EmitBatch starts them under
// whatever span its ctx carries.
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter returns an OTelEmitter using the given tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

func (o *OTelEmitter) Emit(event Event) {
	o.emitOne(context.Background(), event)
}

func (o *OTelEmitter) emitOne(ctx context.Context, event Event) {
	_, span := o.tracer.Start(ctx, event.Msg)
	defer span.End()
	o.annotate(span, event)
}

func (o *OTelEmitter) annotate(span trace.Span, event Event) {
	span.SetAttributes(
		attribute.String("nodeforge.workflow_id", event.WorkflowID),
		attribute.String("nodeforge.node_id", event.NodeID),
	)
	for k, v := range event.Meta {
		switch val := v.(type) {
		case string:
			span.SetAttributes(attribute.String(k, val))
		case int:
			span.SetAttributes(attribute.Int(k, val))
		case int64:
			span.SetAttributes(attribute.Int64(k, val))
		case float64:
			span.SetAttributes(attribute.Float64(k, val))
		case bool:
			span.SetAttributes(attribute.Bool(k, val))
		case time.Duration:
			span.SetAttributes(attribute.Int64(k, int64(val/time.Millisecond)))
		default:
			span.SetAttributes(attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
	if errMsg, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(fmt.Errorf("%s", errMsg))
	}
}

func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, e := range events {
		o.emitOne(ctx, e)
	}
	return nil
}

// Flush force-flushes the active tracer provider, if it supports it.
func (o *OTelEmitter) Flush(ctx context.Context) error {
	tp := otel.GetTracerProvider()
	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := tp.(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}
