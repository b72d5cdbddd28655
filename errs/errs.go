// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package errs defines the error taxonomy shared by the sitepool packages.
// Every kind aborts the operation that produced it and propagates to the
// caller; nothing in sitepool retries. Use [errors.As] to recover the
// concrete type and [errors.Is] to match the sentinels.
package errs

import (
	"fmt"
)

// sentinel lets the Err* values below be constants.
type sentinel string

func (e sentinel) Error() string {
	return string(e)
}

// ErrTaskPanic is the cause recorded in a [WorkerFailure] when a compute
// function panics instead of returning.
const ErrTaskPanic = sentinel("task panicked")

// ErrNotSplittable is wrapped by a [ConfigError] when a plan at the lowest
// execution level is asked to descend further.
const ErrNotSplittable = sentinel("execution level cannot be split")

// ErrOpenEnded marks a count-dependent operation attempted on an open-ended
// range whose stop has not been resolved.
const ErrOpenEnded = sentinel("open-ended site range")

// A ConfigError reports a malformed or conflicting configuration, for
// instance a project-points table with duplicate sites or a memory limit
// outside (0, 1].
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Configf returns a [ConfigError] for field with a formatted message.
func Configf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}

// A PartitionError reports an attempt to slice a site range that cannot be
// sliced by position, i.e. a non-unit-step range without a resolved stop.
type PartitionError struct {
	Start, Step int
	I0, I1      int
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("cannot split positions [%d, %d) of open-ended range start=%d step=%d",
		e.I0, e.I1, e.Start, e.Step)
}

func (e *PartitionError) Unwrap() error {
	return ErrOpenEnded
}

// A ResourceLookupError reports that the site-count oracle failed or did not
// return a usable row count for a resource when one was required.
type ResourceLookupError struct {
	Resource string
	Err      error
}

func (e *ResourceLookupError) Error() string {
	return fmt.Sprintf("site count lookup for %q: %v", e.Resource, e.Err)
}

func (e *ResourceLookupError) Unwrap() error {
	return e.Err
}

// A WorkerFailure reports that a unit submitted to the worker pool returned
// an error or panicked. It aborts the whole run; results flushed before the
// failure remain durable, nothing else is guaranteed.
type WorkerFailure struct {
	// Seq is the submission sequence number of the failed unit.
	Seq int
	// Round is the gather round the unit belonged to, starting at one.
	Round int
	// Unit describes the failed unit's sites.
	Unit string
	Err  error
}

func (e *WorkerFailure) Error() string {
	return fmt.Sprintf("unit #%d (round %d, %s) failed: %v", e.Seq, e.Round, e.Unit, e.Err)
}

func (e *WorkerFailure) Unwrap() error {
	return e.Err
}

// A SubmissionError reports that a batch-queue command wrote to its error
// stream. The job was not submitted.
type SubmissionError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *SubmissionError) Error() string {
	msg := fmt.Sprintf("batch queue command %q failed", e.Command)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	return msg
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
