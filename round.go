// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sitepool

import (
	"cmp"

	"github.com/addrummond/heap"
	"github.com/gammazero/deque"

	"github.com/petenewcomb/sitepool/plan"
)

// round tracks the units submitted since the last gather.
type round struct {
	number  int
	baseSeq int
	units   deque.Deque[*plan.Plan]
}

func (r *round) add(unit *plan.Plan) int {
	seq := r.baseSeq + r.units.Len()
	r.units.PushBack(unit)
	return seq
}

func (r *round) unit(seq int) *plan.Plan {
	return r.units.At(seq - r.baseSeq)
}

func (r *round) size() int {
	return r.units.Len()
}

// next starts the following round.
func (r *round) next() {
	r.baseSeq += r.units.Len()
	r.units.Clear()
	r.number++
}

// ordered is a WorkResult ordered by submission sequence in a min-heap.
type ordered[R any] struct {
	WorkResult[R]
}

func (a *ordered[R]) Cmp(b *ordered[R]) int {
	return cmp.Compare(a.Seq, b.Seq)
}

// reorder collects results as they complete and yields them in submission
// order.
type reorder[R any] struct {
	h heap.Heap[ordered[R], heap.Min]
}

func (ro *reorder[R]) push(wr WorkResult[R]) {
	heap.PushOrderable(&ro.h, ordered[R]{wr})
}

func (ro *reorder[R]) drain() []WorkResult[R] {
	var out []WorkResult[R]
	for {
		o, ok := heap.PopOrderable(&ro.h)
		if !ok {
			return out
		}
		out = append(out, o.WorkResult)
	}
}
