// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package memgov

import (
	"context"
	"errors"
	"sync"
)

// FuncSampler adapts a function to the [Sampler] interface.
type FuncSampler func(ctx context.Context) (Sample, error)

func (f FuncSampler) Sample(ctx context.Context) (Sample, error) {
	return f(ctx)
}

// RatioSample returns a sample with the given utilization ratio.
func RatioSample(ratio float64) Sample {
	const total = 1 << 40
	return Sample{Used: uint64(ratio * total), Total: total}
}

// SequenceSampler returns the given ratios in order, repeating the last one
// once they are used up. It is safe for concurrent use.
type SequenceSampler struct {
	mu     sync.Mutex
	ratios []float64
	next   int
}

// NewSequenceSampler returns a sampler that replays ratios.
func NewSequenceSampler(ratios ...float64) *SequenceSampler {
	return &SequenceSampler{ratios: ratios}
}

func (s *SequenceSampler) Sample(ctx context.Context) (Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ratios) == 0 {
		return Sample{}, errors.New("no ratios to replay")
	}
	i := min(s.next, len(s.ratios)-1)
	s.next++
	return RatioSample(s.ratios[i]), nil
}

// Calls returns how many samples have been taken.
func (s *SequenceSampler) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
