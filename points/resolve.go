// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package points

import (
	"context"
	"fmt"

	"github.com/petenewcomb/sitepool/errs"
)

// A SiteCounter reports how many sites (rows) a resource provides. It is
// consulted only to resolve open-ended ranges and must be idempotent and free
// of side effects.
type SiteCounter interface {
	SiteCount(ctx context.Context, resource string) (int, error)
}

// SiteCounterFunc adapts a function to the [SiteCounter] interface.
type SiteCounterFunc func(ctx context.Context, resource string) (int, error)

func (f SiteCounterFunc) SiteCount(ctx context.Context, resource string) (int, error) {
	return f(ctx, resource)
}

// Resolve returns a PointSet with a known size. Explicit sets and closed
// ranges are returned as-is. An open-ended range asks its oracle for the row
// count of its resource, which becomes the stop.
//
// The oracle is called at most once per open-ended PointSet; every later
// call returns the same resolved value or the same error, regardless of ctx.
// If the range has no oracle, Resolve returns ps and false.
func (ps *PointSet) Resolve(ctx context.Context) (*PointSet, bool, error) {
	if !ps.IsOpen() {
		return ps, true, nil
	}
	res := ps.resolution
	if res == nil || res.oracle == nil {
		return ps, false, nil
	}
	res.once.Do(func() {
		n, err := res.oracle.SiteCount(ctx, res.resource)
		switch {
		case err != nil:
			res.err = &errs.ResourceLookupError{Resource: res.resource, Err: err}
		case n <= 0:
			res.err = &errs.ResourceLookupError{
				Resource: res.resource,
				Err:      fmt.Errorf("no row count available (got %d)", n),
			}
		default:
			r := ps.rng
			r.Stop = n
			r.Open = false
			res.resolved = &PointSet{
				ranged:        true,
				rng:           r,
				defaultConfig: ps.defaultConfig,
			}
		}
	})
	if res.err != nil {
		return nil, false, res.err
	}
	return res.resolved, true, nil
}
