// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/petenewcomb/sitepool/plan"
)

// MeteredCompute records a call count, a duration histogram in seconds and
// an error count for fn, named after metricName, on the global meter
// provider.
func MeteredCompute[R any](metricName string, fn Func[R]) Func[R] {
	meter := otel.GetMeterProvider().Meter(TracerName)
	calls, _ := meter.Int64Counter(metricName+".count", metric.WithDescription("Units computed"))
	duration, _ := meter.Float64Histogram(metricName+".duration", metric.WithUnit("s"))
	failures, _ := meter.Int64Counter(metricName+".errors", metric.WithDescription("Units that failed"))

	return func(ctx context.Context, unit *plan.Plan) (R, error) {
		startTime := time.Now()
		calls.Add(ctx, 1)

		result, err := fn(ctx, unit)

		duration.Record(ctx, time.Since(startTime).Seconds())
		if err != nil {
			failures.Add(ctx, 1)
		}
		return result, err
	}
}

// InstrumentedCompute applies logging, metering and tracing to fn, inside
// out, so the span covers the whole call.
func InstrumentedCompute[R any](operationName string, logger *zap.Logger, fn Func[R]) Func[R] {
	return TracedCompute(operationName, MeteredCompute(operationName, LoggedCompute(operationName, logger, fn)))
}
