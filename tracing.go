package autopacket

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// defaultTracer resolves against the global otel TracerProvider. Until an
// application registers a real provider, every span produced here is a
// no-op, so tracing never needs its own enable/disable knob.
func defaultTracer() trace.Tracer {
	return otel.Tracer("github.com/flowgraph/autopacket")
}

// startSpan is a small convenience wrapper kept in one place so every
// lifecycle/filter span is named and attributed consistently.
func startSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...trace.SpanStartOption) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, attrs...)
}
