// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package command computes units by running an external program once per
// unit. The unit is written to the program's stdin as a YAML [Unit]
// document and whatever the program prints to stdout is the unit's result.
package command

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/petenewcomb/sitepool/errs"
	"github.com/petenewcomb/sitepool/plan"
)

// Unit is the document a program receives on stdin.
type Unit struct {
	Sites       []int             `yaml:"sites,flow"`
	Configs     []string          `yaml:"configs,flow"`
	ConfigFiles map[string]string `yaml:"config_files,omitempty"`
	Resources   []string          `yaml:"resources"`
}

// Compute runs one program invocation per unit.
type Compute struct {
	name        string
	args        []string
	configFiles map[string]string
	logger      *zap.Logger
}

// New returns a Compute running commandLine, which is split on whitespace.
// configFiles maps config ids to parameter files and is passed through to
// the program untouched.
func New(commandLine string, configFiles map[string]string, logger *zap.Logger) (*Compute, error) {
	f := strings.Fields(commandLine)
	if len(f) == 0 {
		return nil, errs.Configf("command", "must not be empty")
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Compute{name: f[0], args: f[1:], configFiles: configFiles, logger: logger}, nil
}

// NewUnit describes p for the program.
func NewUnit(p *plan.Plan, configFiles map[string]string) Unit {
	ps := p.Points()
	sites := ps.Sites()
	configs := make([]string, len(sites))
	for i, s := range sites {
		configs[i], _ = ps.Config(s)
	}
	return Unit{Sites: sites, Configs: configs, ConfigFiles: configFiles, Resources: p.ResourceFiles()}
}

// Run computes unit p. It fails if the program exits unsuccessfully.
func (c *Compute) Run(ctx context.Context, p *plan.Plan) (string, error) {
	in, err := yaml.Marshal(NewUnit(p, c.configFiles))
	if err != nil {
		return "", fmt.Errorf("encoding unit: %w", err)
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.name, c.args...)
	cmd.Stdin = bytes.NewReader(in)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err = cmd.Run()
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		c.logger.Debug("Command wrote to stderr",
			zap.String("command", c.name), zap.Stringer("unit", p), zap.String("stderr", msg))
		if err != nil {
			return "", fmt.Errorf("running %s: %w: %s", c.name, err, msg)
		}
	}
	if err != nil {
		return "", fmt.Errorf("running %s: %w", c.name, err)
	}
	return strings.TrimRight(stdout.String(), "\n"), nil
}
