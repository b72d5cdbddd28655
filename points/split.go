// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package points

import (
	"github.com/petenewcomb/sitepool/errs"
)

// Split returns a new PointSet holding the sites at positions [i0, i1) of
// ps. Positions index the ordered site sequence, not site ids: splitting
// sites 20..99 at [0, 10) yields sites 20..29. Positions past the end are
// clamped, so the result may be shorter than requested or empty.
//
// Splitting an open-ended range with a step other than one fails with a
// [errs.PartitionError]; which absolute sites fall in [i0, i1) cannot be
// known without a resolved stop.
func (ps *PointSet) Split(i0, i1 int) (*PointSet, error) {
	i0 = max(i0, 0)
	i1 = max(i1, i0)

	if !ps.ranged {
		n := len(ps.sites)
		i0, i1 = min(i0, n), min(i1, n)
		sub := &PointSet{
			sites:   make([]int, i1-i0),
			configs: make(map[int]string, i1-i0),
		}
		copy(sub.sites, ps.sites[i0:i1])
		for _, s := range sub.sites {
			sub.configs[s] = ps.configs[s]
		}
		return sub, nil
	}

	r := ps.rng
	switch {
	case r.Open && r.step() != 1:
		return nil, &errs.PartitionError{Start: r.Start, Step: r.step(), I0: i0, I1: i1}
	case r.Open:
		return ps.subRange(r.Start+i0, r.Start+i1), nil
	case r.step() == 1:
		return ps.subRange(min(r.Start+i0, r.Stop), min(r.Start+i1, r.Stop)), nil
	default:
		sites := ps.Sites()
		n := len(sites)
		i0, i1 = min(i0, n), min(i1, n)
		sub := &PointSet{
			sites:   sites[i0:i1:i1],
			configs: make(map[int]string, i1-i0),
		}
		for _, s := range sub.sites {
			sub.configs[s] = ps.defaultConfig
		}
		return sub, nil
	}
}

func (ps *PointSet) subRange(start, stop int) *PointSet {
	return &PointSet{
		ranged:        true,
		rng:           Range{Start: start, Stop: stop, Step: 1},
		defaultConfig: ps.defaultConfig,
	}
}
