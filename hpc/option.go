// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package hpc

import (
	"go.uber.org/zap"

	"github.com/petenewcomb/sitepool/errs"
)

// Kind names an execution option.
type Kind string

const (
	Local Kind = "local"
	Slurm Kind = "slurm"
	Pbs   Kind = "pbs"
)

// ParseKind parses an execution option name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Local, Slurm, Pbs:
		return k, nil
	case "", "serial":
		return Local, nil
	}
	return "", errs.Configf("option", "unknown execution option %q", s)
}

// NewSubmitter returns the submitter for kind. Local runs have none.
func NewSubmitter(kind Kind, runner Runner, username string, logger *zap.Logger) (Submitter, error) {
	switch kind {
	case Slurm:
		return NewSLURM(runner, username, logger)
	case Pbs:
		return NewPBS(runner, username, logger)
	}
	return nil, errs.Configf("option", "execution option %q does not submit to a queue", kind)
}
