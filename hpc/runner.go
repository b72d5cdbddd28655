// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package hpc

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/petenewcomb/sitepool/errs"
)

// Runner runs a queue command and returns its trimmed output streams.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner runs commands as child processes.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return strings.TrimRight(stdout.String(), " \t\r\n"), strings.TrimRight(stderr.String(), " \t\r\n"), err
}

// run invokes a queue command, treating any error output as failure.
func run(ctx context.Context, r Runner, name string, args ...string) (string, error) {
	stdout, stderr, err := r.Run(ctx, name, args...)
	if stderr != "" || err != nil {
		return "", &errs.SubmissionError{
			Command: strings.Join(append([]string{name}, args...), " "),
			Stderr:  stderr,
			Err:     err,
		}
	}
	return stdout, nil
}
