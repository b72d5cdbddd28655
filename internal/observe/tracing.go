// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petenewcomb/sitepool/plan"
)

// TracerName is the instrumentation scope for sitepool spans and meters.
const TracerName = "github.com/petenewcomb/sitepool"

// Tracer returns the sitepool tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// TracedCompute runs each call to fn in a span named operationName.
func TracedCompute[R any](operationName string, fn Func[R]) Func[R] {
	return func(ctx context.Context, unit *plan.Plan) (R, error) {
		ctx, span := Tracer().Start(ctx, operationName, trace.WithAttributes(
			attribute.String("sitepool.level", unit.Level().String()),
			attribute.Int("sitepool.sites", unit.Points().Len()),
		))
		defer span.End()

		result, err := fn(ctx, unit)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return result, err
	}
}

// StartRound opens the span covering one gather round.
func StartRound(ctx context.Context, tracer trace.Tracer, round int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "sitepool.round", trace.WithAttributes(attribute.Int("sitepool.round", round)))
}

// EndSpan ends span, marking it failed if err is non-nil.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
