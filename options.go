// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sitepool

import (
	"runtime"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/petenewcomb/sitepool/errs"
	"github.com/petenewcomb/sitepool/internal/observe"
	"github.com/petenewcomb/sitepool/memgov"
)

// Options configures an [Executor]. The zero value is usable: all cores,
// the default memory limit, and memory sampled from /proc.
type Options struct {
	// Workers is the size of the worker pool and of each gather round. Zero
	// or less means runtime.NumCPU().
	Workers int

	// MemoryLimit is the utilization ratio, in (0, 1], at which results are
	// flushed and the pool recycled. Zero means memgov.DefaultLimit.
	MemoryLimit float64

	// Sampler reports host memory use. Nil means a memgov.ProcSampler.
	Sampler memgov.Sampler

	// Logger defaults to zap.L().
	Logger *zap.Logger

	// Recorder, if set, is told about rounds, flushes, recycles and memory
	// samples.
	Recorder Recorder

	// Tracer is used for round spans. Nil means the global provider's
	// sitepool tracer.
	Tracer trace.Tracer
}

// Recorder receives executor progress. *observe.Recorder, built with
// NewPrometheusRecorder, implements it.
type Recorder interface {
	RoundGathered(units int)
	Flushed(reason string)
	Recycled()
	MemorySampled(ratio float64)
}

func (o Options) resolve() (Options, error) {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.MemoryLimit == 0 {
		o.MemoryLimit = memgov.DefaultLimit
	}
	if !memgov.ValidLimit(o.MemoryLimit) {
		return o, errs.Configf("memory_utilization_limit", "must be in (0, 1], got %v", o.MemoryLimit)
	}
	if o.Sampler == nil {
		s, err := memgov.NewProcSampler()
		if err != nil {
			return o, err
		}
		o.Sampler = s
	}
	if o.Logger == nil {
		o.Logger = zap.L()
	}
	if o.Tracer == nil {
		o.Tracer = observe.Tracer()
	}
	return o, nil
}
