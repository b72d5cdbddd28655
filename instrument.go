// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sitepool

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/petenewcomb/sitepool/internal/observe"
)

// Instrument wraps fn so that every unit is logged, counted and timed on the
// global OpenTelemetry meter provider, and traced in a span named
// operationName. A nil logger means zap.L().
func Instrument[R any](operationName string, logger *zap.Logger, fn ComputeFunc[R]) ComputeFunc[R] {
	return observe.InstrumentedCompute(operationName, logger, fn)
}

// Trace wraps fn so that every unit is logged and traced in a span named
// operationName, without OpenTelemetry metrics. Use it when executor
// metrics come from a [Recorder] instead.
func Trace[R any](operationName string, logger *zap.Logger, fn ComputeFunc[R]) ComputeFunc[R] {
	return observe.TracedCompute(operationName, observe.LoggedCompute(operationName, logger, fn))
}

// NewPrometheusRecorder registers the executor's Prometheus metrics with reg
// and returns a [Recorder] that updates them.
func NewPrometheusRecorder(reg prometheus.Registerer) Recorder {
	return observe.NewRecorder(reg)
}
