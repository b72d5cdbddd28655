// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package hpc

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/petenewcomb/sitepool/errs"
)

var slurmSkip = map[string]bool{"PD": true, "R": true}

// SLURM submits jobs with sbatch.
type SLURM struct {
	queue
}

var _ Submitter = (*SLURM)(nil)

// NewSLURM returns a SLURM submitter. A nil runner runs the real queue
// commands; an empty username means the current user.
func NewSLURM(runner Runner, username string, logger *zap.Logger) (*SLURM, error) {
	q, err := newQueue(runner, username, logger)
	if err != nil {
		return nil, err
	}
	return &SLURM{queue: q}, nil
}

// Status returns the squeue state of the most recent job whose (possibly
// truncated) name matches name.
func (s *SLURM) Status(ctx context.Context, name string) (string, error) {
	out, err := run(ctx, s.runner, "squeue", "-u", s.user, "-n", name)
	if err != nil {
		return "", err
	}
	for _, row := range rows(out) {
		if len(row) > 7 && row[0] != "JOBID" && strings.Contains(name, row[2]) {
			return row[4], nil
		}
	}
	return "", nil
}

// Submit submits job with sbatch. Memory and walltime are required.
func (s *SLURM) Submit(ctx context.Context, job Job) (Submission, error) {
	if job.MemoryGB <= 0 {
		return Submission{}, errs.Configf("memory", "job %q has no node memory", job.Name)
	}
	if job.Walltime <= 0 {
		return Submission{}, errs.Configf("walltime", "job %q has no walltime", job.Name)
	}
	return s.submit(ctx, s, job, slurmScript, slurmSkip, "sbatch", func(out string) string {
		f := strings.Fields(out)
		if len(f) == 0 {
			return ""
		}
		return f[len(f)-1]
	})
}
