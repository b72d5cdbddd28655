// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package plan

import (
	"context"
)

// Iterator is a cursor over a plan's units. Step k covers positions
// [k*c, (k+1)*c) of the site sequence, where c is the plan's chunk size.
// The cursor stops for good as soon as a step would be empty or after
// [Plan.Units] steps, whichever comes first. An unbounded plan never stops
// on its own; the caller ends iteration by cancelling ctx or by no longer
// calling Next.
//
// An Iterator is not safe for concurrent use.
type Iterator struct {
	plan *Plan
	k    int
	done bool
}

// Iter returns a new iterator positioned before the plan's first unit.
func (p *Plan) Iter() *Iterator {
	return &Iterator{plan: p}
}

// Next returns the next unit as a plan at the same level, with the same
// control and resource files. It returns false once iteration is over,
// which is not an error. A split failure ends iteration and is returned.
func (it *Iterator) Next(ctx context.Context) (*Plan, bool, error) {
	if it.done {
		return nil, false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	p := it.plan
	if p.units >= 0 && it.k >= p.units {
		it.done = true
		return nil, false, nil
	}
	i0 := it.k * p.chunk
	sub, err := p.points.Split(i0, i0+p.chunk)
	if err != nil {
		it.done = true
		return nil, false, err
	}
	if sub.Empty() {
		it.done = true
		return nil, false, nil
	}
	it.k++
	return newPlan(p.level, p.control, sub, p.resources, p.logger), true, nil
}

// Steps returns how many units the iterator has produced so far.
func (it *Iterator) Steps() int {
	return it.k
}
