package httpapi

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// handlerSpanPrefix gates span creation: only handler-level operations
// become spans, middleware and response helpers pass through untraced.
const handlerSpanPrefix = "httpapi.Handler."

var apiTracer = otel.Tracer("coupon-engine/internal/interfaces/httpapi")
var noopSpan = trace.SpanFromContext(context.Background())

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if !handlerSpanName(name) {
		return ctx, noopSpan
	}
	// Without a recording parent (e.g. a filtered route like /healthz)
	// a new span would be a standalone root; skip it.
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		return ctx, noopSpan
	}
	return apiTracer.Start(ctx, name)
}

func handlerSpanName(name string) bool {
	return strings.HasPrefix(name, handlerSpanPrefix)
}
