// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package observe

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/petenewcomb/sitepool/plan"
)

// LoggedCompute logs the start and completion of each call to fn, with
// timing and any error. A nil logger means zap.L() at call time.
func LoggedCompute[R any](operationName string, logger *zap.Logger, fn Func[R]) Func[R] {
	return func(ctx context.Context, unit *plan.Plan) (R, error) {
		log := logger
		if log == nil {
			log = zap.L()
		}
		log = log.With(
			zap.String("operation", operationName),
			zap.String("component", component),
			zap.Stringer("unit", unit.Points()))

		log.Debug("Starting unit")
		startTime := time.Now()
		result, err := fn(ctx, unit)
		duration := time.Since(startTime)

		if err != nil {
			log.Error("Unit failed", zap.Duration("duration", duration), zap.Error(err))
		} else {
			log.Debug("Unit completed", zap.Duration("duration", duration))
		}
		return result, err
	}
}
