// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package hpc submits node-level runs to a batch queue.
//
// Submission goes through the queue's own command line tools, reached via a
// [Runner]. Before submitting, each [Submitter] looks the job name up in the
// user's queue and skips the submission, with a warning, if a job of that
// name is already pending or running. Anything a queue command writes to
// its error stream is returned as an [errs.SubmissionError].
package hpc

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/petenewcomb/sitepool/errs"
)

// Queue defaults.
const (
	DefaultQueue      = "short"
	DefaultAllocation = "rev"
	DefaultMemoryGB   = 32
	DefaultStdoutDir  = "./stdout"
)

var defaultWalltimes = map[string]time.Duration{
	"short":         4 * time.Hour,
	"debug":         1 * time.Hour,
	"batch":         48 * time.Hour,
	"batch-h":       48 * time.Hour,
	"long":          240 * time.Hour,
	"bigmem":        240 * time.Hour,
	"data-transfer": 120 * time.Hour,
}

// DefaultWalltime returns the walltime used for queue when none is given.
func DefaultWalltime(queue string) (time.Duration, bool) {
	d, ok := defaultWalltimes[queue]
	return d, ok
}

// Job describes one batch-queue submission.
type Job struct {
	// Name is the queue job name, also used for the script and log files.
	Name string
	// Command is the shell command the job runs.
	Command    string
	Allocation string
	Queue      string
	MemoryGB   float64
	Walltime   time.Duration
	// Feature is an optional PBS resource request passed as "-l".
	Feature string
	// StdoutDir receives the job's stdout and stderr files.
	StdoutDir string
	// ScriptDir receives the generated script. Empty means the current
	// directory.
	ScriptDir string
	// KeepScript keeps the generated script after submission.
	KeepScript bool
}

func (j Job) validate() error {
	switch {
	case j.Name == "":
		return errs.Configf("name", "job name must not be empty")
	case strings.ContainsAny(j.Name, " \t\n/"):
		return errs.Configf("name", "job name %q must not contain whitespace or slashes", j.Name)
	case j.Command == "":
		return errs.Configf("command", "job %q has no command", j.Name)
	case j.Allocation == "":
		return errs.Configf("allocation", "job %q has no allocation", j.Name)
	}
	return nil
}

func (j Job) stdoutDir() string {
	if j.StdoutDir == "" {
		return DefaultStdoutDir
	}
	return j.StdoutDir
}

// Submission is the outcome of [Submitter.Submit].
type Submission struct {
	// ID is the queue's job id. It is empty when Skipped.
	ID string
	// Skipped is set when a job with the same name was already queued.
	Skipped bool
	// Status is the queue status of the existing job when Skipped.
	Status string
}

// Submitter submits jobs to one kind of batch queue.
type Submitter interface {
	// Submit submits job unless a job of the same name is already pending
	// or running.
	Submit(ctx context.Context, job Job) (Submission, error)
	// Status returns the queue status of the most recent job named name, or
	// "" if there is none.
	Status(ctx context.Context, name string) (string, error)
}

// ParseMemoryGB parses a node memory request such as "32GB", "96 gb" or
// "64".
func ParseMemoryGB(s string) (float64, error) {
	t := strings.ToUpper(strings.TrimSpace(s))
	t = strings.TrimSpace(strings.TrimSuffix(t, "GB"))
	gb, err := strconv.ParseFloat(t, 64)
	if err != nil || gb <= 0 {
		return 0, errs.Configf("memory", "invalid node memory %q", s)
	}
	return gb, nil
}

func memoryMB(gb float64) string {
	return fmt.Sprint(int(gb * 1000))
}
