// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package state

import (
	"fmt"
	"sync/atomic"
)

// Stage is a step in an executor run.
type Stage int32

const (
	// StageIdle is the stage before a run starts and between rounds.
	StageIdle Stage = iota
	// StageSubmitting indicates units are being handed to the pool.
	StageSubmitting
	// StageGathering indicates the control goroutine is blocked collecting
	// a full round.
	StageGathering
	// StageAccumulating indicates a round's results are being passed to the
	// sink.
	StageAccumulating
	// StageFlushing indicates the sink is persisting results and the pool
	// is being recycled.
	StageFlushing
	// StageDrainGathering indicates input is exhausted and the partial last
	// round is being collected.
	StageDrainGathering
	// StageFinalAccumulate indicates the last round's results are being
	// passed to the sink.
	StageFinalAccumulate
	// StageForcedFlush indicates the unconditional final flush.
	StageForcedFlush
	// StageDone is terminal, whether the run succeeded or failed.
	StageDone
)

var stageNames = [...]string{
	StageIdle:            "idle",
	StageSubmitting:      "submitting",
	StageGathering:       "gathering",
	StageAccumulating:    "accumulating",
	StageFlushing:        "flushing",
	StageDrainGathering:  "drain-gathering",
	StageFinalAccumulate: "final-accumulate",
	StageForcedFlush:     "forced-flush",
	StageDone:            "done",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int32(s))
}

// Permitted successors of each stage. Any stage may move to StageDone when a
// run fails.
var transitions = map[Stage][]Stage{
	StageIdle:            {StageSubmitting},
	StageSubmitting:      {StageGathering, StageDrainGathering},
	StageGathering:       {StageAccumulating},
	StageAccumulating:    {StageIdle, StageFlushing},
	StageFlushing:        {StageIdle},
	StageDrainGathering:  {StageFinalAccumulate},
	StageFinalAccumulate: {StageForcedFlush},
	StageForcedFlush:     {StageDone},
}

// Lifecycle tracks the stage of a single executor run. The zero value is in
// StageIdle and has not started. Stage may be read from any goroutine;
// transitions are made only by the goroutine driving the run.
type Lifecycle struct {
	started atomic.Bool
	current atomic.Int32
}

// Start marks the run as started. It panics if it has been called before,
// since a run cannot be resumed or repeated.
func (l *Lifecycle) Start() {
	if !l.started.CompareAndSwap(false, true) {
		panic("executor has already run")
	}
}

// Stage returns the current stage.
func (l *Lifecycle) Stage() Stage {
	return Stage(l.current.Load())
}

// Enter moves to next. It panics on a transition the run loop must never
// make.
func (l *Lifecycle) Enter(next Stage) {
	cur := l.Stage()
	if cur == StageDone {
		panic("executor run is done")
	}
	if next != StageDone && !permitted(cur, next) {
		panic(fmt.Sprintf("invalid executor stage transition %v -> %v", cur, next))
	}
	l.current.Store(int32(next))
}

func permitted(from, to Stage) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
