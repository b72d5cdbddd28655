// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package observe wraps compute functions with zap logging, OpenTelemetry
// spans and meters, and records executor progress in Prometheus metrics.
package observe

import (
	"context"

	"github.com/petenewcomb/sitepool/plan"
)

// Func is the shape of a per-unit compute function.
type Func[R any] = func(ctx context.Context, unit *plan.Plan) (R, error)

const component = "sitepool"
