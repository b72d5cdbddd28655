// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sitepool

import (
	"context"
	"fmt"

	"github.com/petenewcomb/sitepool/plan"
)

// WorkResult is the value computed for one unit, labeled with where it came
// from.
type WorkResult[R any] struct {
	// Seq is the order in which the unit was submitted, from zero.
	Seq int
	// Round is the gather round the unit belonged to, from one.
	Round int
	// Unit is the core-level plan that was computed.
	Unit  *plan.Plan
	Value R
}

func (wr WorkResult[R]) String() string {
	return fmt.Sprintf("unit #%d (round %d, %v)", wr.Seq, wr.Round, wr.Unit.Points())
}

// Sink receives results from an [Executor]. Its methods are only ever called
// from the goroutine running [Executor.Execute], one at a time.
type Sink[R any] interface {
	// Accumulate adds one round of results, in submission order, to the
	// in-memory accumulator.
	Accumulate(results []WorkResult[R]) error

	// Flush durably writes everything accumulated since the last reset
	// before returning. It must succeed on an empty accumulator.
	Flush(ctx context.Context) error

	// ResetAccumulator drops everything accumulated so far.
	ResetAccumulator()
}

// ComputeFunc computes the result for one core-level unit. It must not
// retain unit's points beyond the call, and it is called concurrently from
// the worker goroutines.
type ComputeFunc[R any] func(ctx context.Context, unit *plan.Plan) (R, error)

// Units is a source of core-level units. [plan.Iterator] is a Units.
type Units interface {
	Next(ctx context.Context) (*plan.Plan, bool, error)
}
