// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/petenewcomb/sitepool/config"
	"github.com/petenewcomb/sitepool/plan"
)

type app struct {
	configFile string
	verbose    bool
	trace      bool

	cfg      *config.Config
	logger   *zap.Logger
	shutdown func(context.Context) error
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:          "sitepool",
		Short:        "Split site-indexed workloads over nodes and cores",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}
	f := cmd.PersistentFlags()
	f.StringVarP(&a.configFile, "config", "c", "", "configuration file (YAML or JSON)")
	f.BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level in development format")
	f.BoolVar(&a.trace, "trace", false, "print trace spans to stderr")
	f.String("name", config.DefaultName, "run name, used for job and output names")
	f.String("log-level", "info", "log level")
	f.String("option", "local", "execution option: local, slurm or pbs")
	f.Int("nodes", 1, "number of nodes to split the sites over")
	f.Int("ppn", 1, "number of processes per node to split each node's sites over")
	f.Int("workers", 0, "worker pool size; zero means one per CPU")
	f.Float64("memory-limit", 0.7, "memory utilization ratio that triggers a flush")
	f.String("output", "", "results file; {} is replaced by the node index")
	f.String("metrics-file", "", "write prometheus metrics to this file after a run")

	cmd.AddCommand(newPlanCmd(a), newRunCmd(a), newSubmitCmd(a))
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, a.verbose)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)
	a.cfg = cfg
	a.logger = logger.With(zap.String("run", cfg.Name))
	if a.trace {
		a.shutdown, err = installTracing(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	var err error
	if a.shutdown != nil {
		err = a.shutdown(ctx)
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return err
}

func newLogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(cfg.Level())
	return zc.Build()
}

// nodePlan loads the project points and splits them over nodes.
func (a *app) nodePlan(ctx context.Context) (*plan.Plan, error) {
	ps, err := a.cfg.PointSet(a.logger)
	if err != nil {
		return nil, err
	}
	return plan.New(ctx, a.cfg.NodeControl(), ps, a.cfg.ResourceFiles(), plan.LevelNode, plan.WithLogger(a.logger))
}

// node returns the index'th node of the run.
func (a *app) node(ctx context.Context, index int) (*plan.Plan, error) {
	if index < 0 {
		return nil, fmt.Errorf("node index must not be negative, got %d", index)
	}
	np, err := a.nodePlan(ctx)
	if err != nil {
		return nil, err
	}
	it := np.Iter()
	for k := 0; ; k++ {
		p, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("node %d is out of range for %v", index, np)
		}
		if k == index {
			return p, nil
		}
	}
}
