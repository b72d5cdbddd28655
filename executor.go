// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sitepool

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/petenewcomb/sitepool/errs"
	"github.com/petenewcomb/sitepool/internal/observe"
	"github.com/petenewcomb/sitepool/internal/state"
	"github.com/petenewcomb/sitepool/internal/workpool"
	"github.com/petenewcomb/sitepool/memgov"
	"github.com/petenewcomb/sitepool/plan"
)

// Stage is the lifecycle stage of an [Executor].
type Stage = state.Stage

// Executor stages. An executor starts in StageIdle, returns to it between
// rounds, and ends in StageDone whether its run succeeded or failed.
const (
	StageIdle            = state.StageIdle
	StageSubmitting      = state.StageSubmitting
	StageGathering       = state.StageGathering
	StageAccumulating    = state.StageAccumulating
	StageFlushing        = state.StageFlushing
	StageDrainGathering  = state.StageDrainGathering
	StageFinalAccumulate = state.StageFinalAccumulate
	StageForcedFlush     = state.StageForcedFlush
	StageDone            = state.StageDone
)

// Stats summarizes an executor run.
type Stats struct {
	// Rounds counts gathers that returned at least one result.
	Rounds int
	Units  int
	// Accumulates counts calls to Sink.Accumulate.
	Accumulates int
	// Flushes counts calls to Sink.Flush, including the final one.
	Flushes  int
	Recycles int
}

// Executor drives a bounded worker pool over a stream of units. An Executor
// runs once; create a new one for each run.
type Executor[R any] struct {
	opts      Options
	governor  memgov.Governor
	lifecycle state.Lifecycle

	mu    sync.Mutex
	stats Stats
}

// NewExecutor resolves opts and returns an idle executor. It fails with a
// [errs.ConfigError] if the memory limit is outside (0, 1], or if no sampler
// is given and host memory cannot be read.
func NewExecutor[R any](opts Options) (*Executor[R], error) {
	opts, err := opts.resolve()
	if err != nil {
		return nil, err
	}
	return &Executor[R]{
		opts:     opts,
		governor: memgov.Governor{Sampler: opts.Sampler, Limit: opts.MemoryLimit},
	}, nil
}

// Workers returns the resolved pool size.
func (e *Executor[R]) Workers() int {
	return e.opts.Workers
}

// MemoryLimit returns the resolved memory utilization limit.
func (e *Executor[R]) MemoryLimit() float64 {
	return e.opts.MemoryLimit
}

// Stage returns the current lifecycle stage. It is safe to call while
// Execute is running.
func (e *Executor[R]) Stage() Stage {
	return e.lifecycle.Stage()
}

// Stats returns the counts so far. It is safe to call while Execute is
// running.
func (e *Executor[R]) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func (e *Executor[R]) count(f func(*Stats)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f(&e.stats)
}

// Execute computes every unit from units and hands the results to sink.
//
// Units are submitted without blocking until a round of Workers units is
// outstanding; the round is then gathered, its results are accumulated in
// submission order, and memory is sampled. If utilization has reached the
// limit, sink is flushed and reset and the pool is replaced. When units is
// exhausted the remaining units are gathered and accumulated, and sink is
// flushed and reset one last time.
//
// The first failed or panicking unit cancels the others and is returned as
// a [*errs.WorkerFailure]. Errors from units and sink are returned as is.
// Execute panics if called more than once.
func (e *Executor[R]) Execute(ctx context.Context, compute ComputeFunc[R], units Units, sink Sink[R]) error {
	if compute == nil {
		panic("compute function must be non-nil")
	}
	if units == nil || sink == nil {
		panic("units and sink must be non-nil")
	}
	e.lifecycle.Start()
	logger := e.opts.Logger

	pool := workpool.New[R](ctx, e.opts.Workers)
	defer func() {
		pool.CancelAndWait()
		if e.lifecycle.Stage() != StageDone {
			e.lifecycle.Enter(StageDone)
		}
	}()

	var r round
	r.number = 1
	for {
		e.lifecycle.Enter(StageSubmitting)
		roundCtx, span := observe.StartRound(ctx, e.opts.Tracer, r.number)
		exhausted, err := e.fill(roundCtx, pool, &r, compute, units)
		if err != nil {
			observe.EndSpan(span, err)
			return err
		}
		if exhausted {
			span.SetAttributes(attribute.Bool("sitepool.final", true))
			err = e.finish(ctx, pool, &r, sink)
			observe.EndSpan(span, err)
			return err
		}

		e.lifecycle.Enter(StageGathering)
		results, err := e.gather(ctx, pool, &r)
		if err == nil {
			e.lifecycle.Enter(StageAccumulating)
			err = e.accumulate(sink, results)
		}
		var flush bool
		if err == nil {
			flush = e.decide(ctx, logger, r.number)
		}
		if err == nil && flush {
			e.lifecycle.Enter(StageFlushing)
			span.AddEvent("flush")
			err = e.flush(ctx, sink, observe.FlushMemory)
			if err == nil {
				pool = e.recycle(ctx, pool)
			}
		}
		observe.EndSpan(span, err)
		if err != nil {
			return err
		}
		e.lifecycle.Enter(StageIdle)
		r.next()
	}
}

// fill submits units until the round is full or units is exhausted.
func (e *Executor[R]) fill(ctx context.Context, pool *workpool.Pool[R], r *round, compute ComputeFunc[R], units Units) (bool, error) {
	// Tasks run in the pool's context; carry the round span over so compute
	// spans nest under it.
	span := trace.SpanFromContext(ctx)
	for r.size() < e.opts.Workers {
		unit, ok, err := units.Next(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return true, nil
		}
		seq := r.add(unit)
		accepted := pool.Submit(seq, func(taskCtx context.Context) (R, error) {
			return compute(trace.ContextWithSpan(taskCtx, span), unit)
		})
		if !accepted {
			panic("worker pool refused a unit within its round")
		}
	}
	return false, nil
}

// gather collects every outstanding unit of the round in submission order.
func (e *Executor[R]) gather(ctx context.Context, pool *workpool.Pool[R], r *round) ([]WorkResult[R], error) {
	var ro reorder[R]
	for range r.size() {
		c, ok, err := pool.Gather(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			panic("worker pool lost a unit")
		}
		if c.Err != nil {
			return nil, &errs.WorkerFailure{
				Seq:   c.Seq,
				Round: r.number,
				Unit:  r.unit(c.Seq).Points().String(),
				Err:   c.Err,
			}
		}
		ro.push(WorkResult[R]{Seq: c.Seq, Round: r.number, Unit: r.unit(c.Seq), Value: c.Value})
	}
	results := ro.drain()
	if len(results) > 0 {
		if rec := e.opts.Recorder; rec != nil {
			rec.RoundGathered(len(results))
		}
		e.count(func(s *Stats) {
			s.Rounds++
			s.Units += len(results)
		})
	}
	return results, nil
}

func (e *Executor[R]) accumulate(sink Sink[R], results []WorkResult[R]) error {
	if err := sink.Accumulate(results); err != nil {
		return err
	}
	e.count(func(s *Stats) { s.Accumulates++ })
	return nil
}

// decide samples memory after a full round. A sampling failure is logged
// and treated as no pressure; the final flush still runs.
func (e *Executor[R]) decide(ctx context.Context, logger *zap.Logger, round int) bool {
	d, err := e.governor.Decide(ctx)
	if err != nil {
		logger.Warn("Could not sample memory; continuing without flush",
			zap.Int("round", round), zap.Error(err))
		return false
	}
	if rec := e.opts.Recorder; rec != nil {
		rec.MemorySampled(d.Sample.Ratio())
	}
	logger.Debug(d.Sample.String(), zap.Int("round", round), zap.Float64("limit", d.Limit))
	if d.Flush {
		logger.Info("Memory utilization limit reached; flushing results",
			zap.Int("round", round),
			zap.Float64("ratio", d.Sample.Ratio()),
			zap.Float64("limit", d.Limit))
	}
	return d.Flush
}

func (e *Executor[R]) flush(ctx context.Context, sink Sink[R], reason string) error {
	if err := sink.Flush(ctx); err != nil {
		return err
	}
	sink.ResetAccumulator()
	if rec := e.opts.Recorder; rec != nil {
		rec.Flushed(reason)
	}
	e.count(func(s *Stats) { s.Flushes++ })
	return nil
}

// recycle replaces an idle pool with a fresh one and asks the runtime to
// return freed memory to the operating system.
func (e *Executor[R]) recycle(ctx context.Context, pool *workpool.Pool[R]) *workpool.Pool[R] {
	pool.Close()
	pool.Wait()
	runtime.GC()
	debug.FreeOSMemory()
	if rec := e.opts.Recorder; rec != nil {
		rec.Recycled()
	}
	e.count(func(s *Stats) { s.Recycles++ })
	e.opts.Logger.Debug("Recycled worker pool", zap.Int("workers", e.opts.Workers))
	return workpool.New[R](ctx, e.opts.Workers)
}

// finish gathers the partial last round and forces the final flush.
func (e *Executor[R]) finish(ctx context.Context, pool *workpool.Pool[R], r *round, sink Sink[R]) error {
	e.lifecycle.Enter(StageDrainGathering)
	results, err := e.gather(ctx, pool, r)
	if err != nil {
		return err
	}
	e.lifecycle.Enter(StageFinalAccumulate)
	if len(results) > 0 {
		if err := e.accumulate(sink, results); err != nil {
			return err
		}
	}
	e.lifecycle.Enter(StageForcedFlush)
	if err := e.flush(ctx, sink, observe.FlushFinal); err != nil {
		return err
	}
	e.lifecycle.Enter(StageDone)
	e.opts.Logger.Info("Finished all units", zap.Int("units", e.Stats().Units))
	return nil
}

// Run is a convenience that executes the units of p, which must be a
// core-level plan. Descend a node-level plan first.
func (e *Executor[R]) Run(ctx context.Context, compute ComputeFunc[R], p *plan.Plan, sink Sink[R]) error {
	if p == nil || p.Level() != plan.LevelCore {
		panic("plan must be at the core level")
	}
	return e.Execute(ctx, compute, p.Iter(), sink)
}
