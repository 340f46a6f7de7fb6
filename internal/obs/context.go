package obs

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/backend-invoice/internal/tenant"
)

const instrumentationName = "github.com/noah-isme/backend-invoice"

type routePatternKey struct{}

// WithRoutePattern stores the matched chi pattern on ctx.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext returns the pattern stored by WithRoutePattern.
func RoutePatternFromContext(ctx context.Context) string {
	v, _ := ctx.Value(routePatternKey{}).(string)
	return v
}

// Logger returns the request scoped logger, or a disabled one outside a request.
func Logger(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// StartSpan starts an internal span tagged with the caller's company.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if company, ok := tenant.From(ctx); ok {
		attrs = append(attrs, attribute.String("company.id", company))
	}
	return otel.Tracer(instrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}
