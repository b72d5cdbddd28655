// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package hpc

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

var pbsSkip = map[string]bool{"Q": true, "R": true}

// PBS submits jobs with qsub.
type PBS struct {
	queue
}

var _ Submitter = (*PBS)(nil)

// NewPBS returns a PBS submitter. A nil runner runs the real queue
// commands; an empty username means the current user.
func NewPBS(runner Runner, username string, logger *zap.Logger) (*PBS, error) {
	q, err := newQueue(runner, username, logger)
	if err != nil {
		return nil, err
	}
	return &PBS{queue: q}, nil
}

// Status returns the qstat state of the most recent job named name.
func (p *PBS) Status(ctx context.Context, name string) (string, error) {
	out, err := run(ctx, p.runner, "qstat", "-u", p.user)
	if err != nil {
		return "", err
	}
	for _, row := range rows(out) {
		if len(row) > 10 && row[3] == name {
			return row[len(row)-2], nil
		}
	}
	return "", nil
}

// Submit submits job with qsub.
func (p *PBS) Submit(ctx context.Context, job Job) (Submission, error) {
	return p.submit(ctx, p, job, pbsScript, pbsSkip, "qsub", strings.TrimSpace)
}
