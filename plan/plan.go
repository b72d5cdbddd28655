// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package plan splits a [points.PointSet] into units of work at node and
// core granularity.
//
// A [Plan] resolves its chunk size once, at construction: the explicit
// sites-per-unit if given, otherwise the site count divided over the
// level's workers, otherwise [FallbackChunkSize] when the site count cannot
// be known. Iterating a plan yields same-level child plans over disjoint,
// contiguous positions of the site sequence; [Plan.Descend] re-plans the
// same sites one level down using that level's own [Control].
package plan

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/petenewcomb/sitepool/errs"
	"github.com/petenewcomb/sitepool/points"
)

// FallbackChunkSize is used when no sites-per-unit value is given and the
// number of sites cannot be determined.
const FallbackChunkSize = 100

// Plan is one level of an execution plan over a fixed set of sites. Plans
// are immutable; iteration state lives in an [Iterator].
type Plan struct {
	level     Level
	control   Control
	points    *points.PointSet
	resources []string
	chunk     int
	units     int
	warnings  []string
	logger    *zap.Logger
}

type options struct {
	logger *zap.Logger
}

// Option configures [New].
type Option func(*options)

// WithLogger sets the logger used for plan warnings. The default is zap.L().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New builds a plan over ps at level. An open-ended ps is resolved through
// its site-count oracle before the chunk size is computed, and a lookup
// failure is returned as is. The resource file list is referenced, never
// split: every child plan carries the same list.
func New(ctx context.Context, control Control, ps *points.PointSet, resourceFiles []string, level Level, opts ...Option) (*Plan, error) {
	if ps == nil {
		return nil, errs.Configf("project_points", "no project points given")
	}
	if err := control.Validate(); err != nil {
		return nil, err
	}
	o := options{logger: zap.L()}
	for _, opt := range opts {
		opt(&o)
	}

	resolved, _, err := ps.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	p := newPlan(level, control.withDefaults(), resolved, slices.Clone(resourceFiles), o.logger)
	for _, w := range p.warnings {
		p.logger.Warn(w, zap.Stringer("level", level), zap.Stringer("points", resolved),
			zap.Int("chunk_size", p.chunk))
	}
	return p, nil
}

func newPlan(level Level, control Control, ps *points.PointSet, resources []string, logger *zap.Logger) *Plan {
	p := &Plan{
		level:     level,
		control:   control,
		points:    ps,
		resources: resources,
		logger:    logger,
		units:     -1,
	}
	n := ps.Len()
	switch {
	case control.SitesPerUnit > 0:
		p.chunk = control.SitesPerUnit
	case n >= 0:
		p.chunk = max(ceilDiv(n, control.Workers()), 1)
	default:
		p.chunk = FallbackChunkSize
		p.warnings = append(p.warnings,
			fmt.Sprintf("number of sites is unknown and no sites per %v was given; using %d sites per unit", level, FallbackChunkSize))
	}
	if n >= 0 {
		p.units = ceilDiv(n, p.chunk)
	}
	return p
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Level returns the plan's granularity.
func (p *Plan) Level() Level { return p.level }

// Control returns the control the plan was built with, with defaults applied.
func (p *Plan) Control() Control { return p.control }

// Points returns the plan's sites. An open-ended range has already been
// resolved if its oracle could resolve it.
func (p *Plan) Points() *points.PointSet { return p.points }

// ResourceFiles returns a copy of the resource file list.
func (p *Plan) ResourceFiles() []string { return slices.Clone(p.resources) }

// ChunkSize returns the number of sites per unit.
func (p *Plan) ChunkSize() int { return p.chunk }

// Units returns the number of units the plan iterates, or -1 if the site
// count is unknown and iteration is unbounded.
func (p *Plan) Units() int { return p.units }

// Warnings returns the non-fatal problems found while building the plan.
func (p *Plan) Warnings() []string { return slices.Clone(p.warnings) }

func (p *Plan) String() string {
	if p.units < 0 {
		return fmt.Sprintf("%v plan over %v: unbounded units of %d", p.level, p.points, p.chunk)
	}
	return fmt.Sprintf("%v plan over %v: %d units of %d", p.level, p.points, p.units, p.chunk)
}

// Descend re-plans the same sites at the next lower level using control,
// which is that level's own configuration. Descending from the core level
// fails with a [errs.ConfigError] wrapping [errs.ErrNotSplittable].
func (p *Plan) Descend(control Control) (*Plan, error) {
	level, err := p.level.next()
	if err != nil {
		return nil, err
	}
	if err := control.Validate(); err != nil {
		return nil, err
	}
	child := newPlan(level, control.withDefaults(), p.points, p.resources, p.logger)
	for _, w := range child.warnings {
		child.logger.Warn(w, zap.Stringer("level", level), zap.Stringer("points", p.points))
	}
	return child, nil
}

// Partitions drains a fresh iterator into a slice. It fails with
// [errs.ErrOpenEnded] if the plan is unbounded.
func (p *Plan) Partitions(ctx context.Context) ([]*Plan, error) {
	if p.units < 0 {
		return nil, fmt.Errorf("listing partitions of %v: %w", p.points, errs.ErrOpenEnded)
	}
	out := make([]*Plan, 0, p.units)
	it := p.Iter()
	for {
		child, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, child)
	}
}
