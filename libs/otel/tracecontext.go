package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TraceCarrier is the W3C trace context in the form stored on outbox rows.
type TraceCarrier struct {
	Traceparent string
	Tracestate  string
}

// CaptureTrace serializes the span context of ctx with the global propagator.
// It is empty when ctx carries no span.
func CaptureTrace(ctx context.Context) TraceCarrier {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return TraceCarrier{Traceparent: carrier["traceparent"], Tracestate: carrier["tracestate"]}
}

func (c TraceCarrier) Empty() bool { return c.Traceparent == "" }

// Restore returns ctx with the captured span context as its remote parent.
func (c TraceCarrier) Restore(ctx context.Context) context.Context {
	if c.Empty() {
		return ctx
	}
	carrier := propagation.MapCarrier{"traceparent": c.Traceparent}
	if c.Tracestate != "" {
		carrier["tracestate"] = c.Tracestate
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
