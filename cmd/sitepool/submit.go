// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/petenewcomb/sitepool/config"
	"github.com/petenewcomb/sitepool/hpc"
)

func newSubmitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "submit",
		Short: "Submit one batch-queue job per node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := a.cfg
			kind := cfg.Kind()
			if kind == hpc.Local {
				return fmt.Errorf("execution option %q does not submit to a queue; use run", kind)
			}
			submitter, err := hpc.NewSubmitter(kind, nil, "", a.logger)
			if err != nil {
				return err
			}
			np, err := a.nodePlan(ctx)
			if err != nil {
				return err
			}
			nodes, err := np.Partitions(ctx)
			if err != nil {
				return err
			}
			base, err := runCommand(a.configFile, cmd.Flags())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i := range nodes {
				job, err := cfg.Job(i, fmt.Sprintf("%s --node %d", base, i))
				if err != nil {
					return err
				}
				sub, err := submitter.Submit(ctx, job)
				if err != nil {
					return err
				}
				if sub.Skipped {
					fmt.Fprintf(out, "%s: already %s\n", job.Name, sub.Status)
					continue
				}
				a.logger.Debug("Submitted node", zap.Int("node", i), zap.String("id", sub.ID))
				fmt.Fprintf(out, "%s: %s\n", job.Name, sub.ID)
			}
			return nil
		},
	}
}

// runCommand returns the command line a job uses to run its node. Flags
// that override configuration are passed along.
func runCommand(configFile string, flags *pflag.FlagSet) (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	parts := []string{exe}
	if configFile != "" {
		abs, err := filepath.Abs(configFile)
		if err != nil {
			return "", err
		}
		parts = append(parts, "--config", abs)
	}
	flags.Visit(func(f *pflag.Flag) {
		if _, ok := config.FlagKeys[f.Name]; ok {
			parts = append(parts, fmt.Sprintf("--%s=%s", f.Name, f.Value))
		}
	})
	parts = append(parts, "run")
	return strings.Join(parts, " "), nil
}
