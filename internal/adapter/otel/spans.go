package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "hearth"

// StartResolveSpan starts a span for tenant resolution.
func StartResolveSpan(ctx context.Context, host, path string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "tenant.resolve",
		trace.WithAttributes(
			attribute.String("http.host", host),
			attribute.String("http.path", path),
		),
	)
}

// StartLoginSpan starts a span for a credential check.
func StartLoginSpan(ctx context.Context, tenantID int64) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "auth.login",
		trace.WithAttributes(
			attribute.Int64("tenant.id", tenantID),
		),
	)
}
