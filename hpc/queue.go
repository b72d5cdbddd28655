// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package hpc

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"strings"
	"text/template"

	"go.uber.org/zap"
)

// queue holds what SLURM and PBS submission have in common.
type queue struct {
	runner Runner
	user   string
	logger *zap.Logger
}

func newQueue(runner Runner, username string, logger *zap.Logger) (queue, error) {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = zap.L()
	}
	if username == "" {
		u, err := user.Current()
		if err != nil {
			return queue{}, fmt.Errorf("looking up queue user: %w", err)
		}
		username = u.Username
	}
	return queue{runner: runner, user: username, logger: logger}, nil
}

// rows splits queue listing output into whitespace-separated fields, most
// recent entry first.
func rows(out string) [][]string {
	lines := strings.Split(out, "\n")
	rs := make([][]string, 0, len(lines))
	for i := len(lines) - 1; i >= 0; i-- {
		if f := strings.Fields(lines[i]); len(f) > 0 {
			rs = append(rs, f)
		}
	}
	return rs
}

// submit runs the duplicate guard, then writes the script and hands it to
// the submit command. parseID extracts the job id from its output.
func (q queue) submit(
	ctx context.Context,
	s Submitter,
	job Job,
	script *template.Template,
	skip map[string]bool,
	submitCmd string,
	parseID func(string) string,
) (Submission, error) {
	if err := job.validate(); err != nil {
		return Submission{}, err
	}
	logger := q.logger.With(zap.String("job", job.Name))
	status, err := s.Status(ctx, job.Name)
	if err != nil {
		return Submission{}, err
	}
	if skip[status] {
		logger.Warn("Not submitting job because it is already in the queue", zap.String("status", status))
		return Submission{Skipped: true, Status: status}, nil
	}

	text, err := renderScript(script, job)
	if err != nil {
		return Submission{}, fmt.Errorf("rendering script for %s: %w", job.Name, err)
	}
	path, err := writeScript(job, text, logger)
	if err != nil {
		return Submission{}, fmt.Errorf("writing script for %s: %w", job.Name, err)
	}
	if !job.KeepScript {
		defer func() {
			if err := os.Remove(path); err != nil {
				logger.Warn("Could not remove job script", zap.String("path", path), zap.Error(err))
			}
		}()
	}

	out, err := run(ctx, q.runner, submitCmd, path)
	if err != nil {
		return Submission{}, err
	}
	id := parseID(out)
	logger.Info("Submitted job", zap.String("id", id), zap.String("queue", job.Queue))
	return Submission{ID: id}, nil
}
