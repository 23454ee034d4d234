package tracing

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// GetStartingTraceID returns the OpenTelemetry trace id of ctx, or a manual
// "man-<uuid>" id when no valid span is present, so logs stay correlated even
// with tracing disabled.
func GetStartingTraceID(ctx context.Context) string {
	if id := trace.SpanFromContext(ctx).SpanContext().TraceID(); id.IsValid() {
		return id.String()
	}
	return "man-" + uuid.NewString()
}
