// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package memgov decides when accumulated results must be flushed to keep
// host memory under a ceiling. Nothing here keeps state between calls: a
// [Governor] samples memory and compares the ratio with its limit, so the
// decision can be driven by a synthetic [Sampler] in tests.
package memgov

import (
	"context"
	"fmt"
)

// DefaultLimit is the memory utilization ratio at which a flush is
// requested when no limit is configured.
const DefaultLimit = 0.7

// Sample is a snapshot of host memory in bytes.
type Sample struct {
	Used  uint64
	Total uint64
}

// Ratio returns Used/Total, or zero when Total is unknown.
func (s Sample) Ratio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Used) / float64(s.Total)
}

func (s Sample) String() string {
	const gb = 1e9
	return fmt.Sprintf("memory utilization is %.3f GB out of %.3f GB total (%.1f%% used)",
		float64(s.Used)/gb, float64(s.Total)/gb, 100*s.Ratio())
}

// A Sampler reports current memory use.
type Sampler interface {
	Sample(ctx context.Context) (Sample, error)
}

// ShouldFlush reports whether ratio has reached limit.
func ShouldFlush(ratio, limit float64) bool {
	return ratio >= limit
}

// ValidLimit reports whether limit is a usable utilization ratio.
func ValidLimit(limit float64) bool {
	return limit > 0 && limit <= 1
}

// Decision is the outcome of one [Governor.Decide] call.
type Decision struct {
	Sample Sample
	Limit  float64
	Flush  bool
}

// Governor pairs a sampler with a utilization limit.
type Governor struct {
	Sampler Sampler
	Limit   float64
}

// Decide takes one sample and reports whether to flush.
func (g Governor) Decide(ctx context.Context) (Decision, error) {
	s, err := g.Sampler.Sample(ctx)
	if err != nil {
		return Decision{Limit: g.Limit}, fmt.Errorf("sampling memory: %w", err)
	}
	return Decision{
		Sample: s,
		Limit:  g.Limit,
		Flush:  ShouldFlush(s.Ratio(), g.Limit),
	}, nil
}
