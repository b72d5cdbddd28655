// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package points models which sites are simulated and which parameter
// configuration each site uses.
//
// A [PointSet] is immutable. It is either an explicit ordered list of unique
// site ids with a site-to-config mapping, or a half-open integer range of
// site ids that all share one default config. A range may be open-ended, in
// which case its stop is looked up once from a [SiteCounter] before anything
// that depends on the number of sites is computed.
package points

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/petenewcomb/sitepool/errs"
)

// Range describes the site ids start, start+step, ... below Stop. A zero Step
// means one. When Open is set, Stop is unknown and ignored.
type Range struct {
	Start int
	Stop  int
	Step  int
	Open  bool
}

func (r Range) step() int {
	if r.Step == 0 {
		return 1
	}
	return r.Step
}

// Len returns the number of sites in a closed range, or -1 if it is open.
func (r Range) Len() int {
	if r.Open {
		return -1
	}
	if r.Stop <= r.Start {
		return 0
	}
	step := r.step()
	return (r.Stop - r.Start + step - 1) / step
}

func (r Range) String() string {
	stop := fmt.Sprint(r.Stop)
	if r.Open {
		stop = "inf"
	}
	if r.step() == 1 {
		return fmt.Sprintf("[%d, %s)", r.Start, stop)
	}
	return fmt.Sprintf("[%d, %s) step %d", r.Start, stop, r.step())
}

// PointSet is the set of sites for one execution together with the config
// id assigned to each site. The zero value is an empty explicit set.
type PointSet struct {
	// explicit form
	sites   []int
	configs map[int]string

	// range form
	ranged        bool
	rng           Range
	defaultConfig string

	// Non-nil only for open-ended ranges. Shared by copies so that the
	// oracle is consulted at most once per PointSet lineage.
	resolution *stopResolution
}

// NewExplicit builds a PointSet from an ordered site list and a mapping that
// must cover exactly those sites.
func NewExplicit(sites []int, configs map[int]string) (*PointSet, error) {
	seen := make(map[int]struct{}, len(sites))
	for _, s := range sites {
		if _, dup := seen[s]; dup {
			return nil, errs.Configf("sites", "site %d listed more than once", s)
		}
		if _, ok := configs[s]; !ok {
			return nil, errs.Configf("configs", "site %d has no config", s)
		}
		seen[s] = struct{}{}
	}
	if len(configs) != len(sites) {
		for s := range configs {
			if _, ok := seen[s]; !ok {
				return nil, errs.Configf("configs", "config given for site %d which is not in the site list", s)
			}
		}
	}
	return &PointSet{
		sites:   slices.Clone(sites),
		configs: maps.Clone(configs),
	}, nil
}

// NewRange builds a range-form PointSet whose sites all use defaultConfig.
// For an open-ended range, oracle and resource name where the stop will be
// looked up; a nil oracle leaves the range unresolvable.
func NewRange(r Range, defaultConfig string, oracle SiteCounter, resource string) (*PointSet, error) {
	if defaultConfig == "" {
		return nil, errs.Configf("configs", "range-form project points need a default config id")
	}
	if r.Step < 0 {
		return nil, errs.Configf("step", "must not be negative, got %d", r.Step)
	}
	if r.Start < 0 {
		return nil, errs.Configf("start", "must not be negative, got %d", r.Start)
	}
	if r.Step == 0 {
		r.Step = 1
	}
	ps := &PointSet{
		ranged:        true,
		rng:           r,
		defaultConfig: defaultConfig,
	}
	if r.Open {
		ps.rng.Stop = 0
		ps.resolution = &stopResolution{oracle: oracle, resource: resource}
	}
	return ps, nil
}

// IsRange reports whether the set is in range form.
func (ps *PointSet) IsRange() bool {
	return ps.ranged
}

// IsOpen reports whether the set is a range whose stop is not yet known.
func (ps *PointSet) IsOpen() bool {
	return ps.ranged && ps.rng.Open
}

// Range returns the range of a range-form set.
func (ps *PointSet) Range() (Range, bool) {
	return ps.rng, ps.ranged
}

// Len returns the number of sites, or -1 for an unresolved open range.
func (ps *PointSet) Len() int {
	if ps.ranged {
		return ps.rng.Len()
	}
	return len(ps.sites)
}

// Empty reports whether the set is known to contain no sites.
func (ps *PointSet) Empty() bool {
	return ps.Len() == 0
}

// Sites returns the site ids in order. It returns nil for an unresolved open
// range.
func (ps *PointSet) Sites() []int {
	if !ps.ranged {
		return slices.Clone(ps.sites)
	}
	if ps.rng.Open {
		return nil
	}
	out := make([]int, 0, ps.rng.Len())
	for s := ps.rng.Start; s < ps.rng.Stop; s += ps.rng.step() {
		out = append(out, s)
	}
	return out
}

// Config returns the config id assigned to site.
func (ps *PointSet) Config(site int) (string, bool) {
	if !ps.ranged {
		id, ok := ps.configs[site]
		return id, ok
	}
	r := ps.rng
	if site < r.Start || (!r.Open && site >= r.Stop) || (site-r.Start)%r.step() != 0 {
		return "", false
	}
	return ps.defaultConfig, true
}

// ConfigIDs returns the distinct config ids in use, sorted.
func (ps *PointSet) ConfigIDs() []string {
	if ps.ranged {
		if ps.Empty() {
			return nil
		}
		return []string{ps.defaultConfig}
	}
	ids := slices.Collect(maps.Values(ps.configs))
	slices.Sort(ids)
	return slices.Compact(ids)
}

// SitesForConfig returns, in order, the sites assigned to config id. It
// returns nil for an unknown id or an unresolved open range.
func (ps *PointSet) SitesForConfig(id string) []int {
	if ps.ranged {
		if id != ps.defaultConfig {
			return nil
		}
		return ps.Sites()
	}
	var out []int
	for _, s := range ps.sites {
		if ps.configs[s] == id {
			out = append(out, s)
		}
	}
	return out
}

// AsRange returns the set as a closed range if its sites form an arithmetic
// progression with a positive step.
func (ps *PointSet) AsRange() (Range, bool) {
	if ps.ranged {
		return ps.rng, true
	}
	n := len(ps.sites)
	if n == 0 {
		return Range{}, false
	}
	step := 1
	if n > 1 {
		step = ps.sites[1] - ps.sites[0]
	}
	if step <= 0 {
		return Range{}, false
	}
	for i := 1; i < n; i++ {
		if ps.sites[i]-ps.sites[i-1] != step {
			return Range{}, false
		}
	}
	return Range{Start: ps.sites[0], Stop: ps.sites[n-1] + 1, Step: step}, true
}

func (ps *PointSet) String() string {
	if ps.ranged {
		return "sites " + ps.rng.String()
	}
	switch len(ps.sites) {
	case 0:
		return "no sites"
	case 1:
		return fmt.Sprintf("site %d", ps.sites[0])
	default:
		return fmt.Sprintf("%d sites %d..%d", len(ps.sites), ps.sites[0], ps.sites[len(ps.sites)-1])
	}
}

type stopResolution struct {
	oracle   SiteCounter
	resource string

	once     sync.Once
	resolved *PointSet
	err      error
}
