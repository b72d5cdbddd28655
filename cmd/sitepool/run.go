// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/petenewcomb/sitepool"
	"github.com/petenewcomb/sitepool/internal/command"
	"github.com/petenewcomb/sitepool/internal/observe"
	"github.com/petenewcomb/sitepool/plan"
	"github.com/petenewcomb/sitepool/sink"
)

func newRunCmd(a *app) *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one node's sites on this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			node, err := a.node(ctx, index)
			if err != nil {
				return err
			}
			return a.run(ctx, index, node)
		},
	}
	cmd.Flags().IntVar(&index, "node", 0, "index of the node to run")
	return cmd
}

func (a *app) run(ctx context.Context, index int, node *plan.Plan) error {
	cfg := a.cfg
	logger := a.logger.With(zap.Int("node", index))

	cores, err := node.Descend(cfg.CoreControl())
	if err != nil {
		return err
	}
	logger.Info("Running node", zap.Stringer("plan", cores))

	reg := prometheus.NewRegistry()
	ex, err := sitepool.NewExecutor[string](sitepool.Options{
		Workers:     cfg.Execution.Workers,
		MemoryLimit: cfg.Execution.MemoryUtilizationLimit,
		Logger:      logger,
		Recorder:    sitepool.NewPrometheusRecorder(reg),
	})
	if err != nil {
		return err
	}
	c, err := command.New(cfg.Execution.Command, cfg.Configs, logger)
	if err != nil {
		return err
	}
	out := sink.NewFileSink[string](cfg.OutputPath(index), logger)

	runErr := ex.Run(ctx, sitepool.Trace("sitepool.unit", logger, c.Run), cores, out)
	if path := cfg.Execution.MetricsFile; path != "" {
		if err := observe.WriteTextfile(path, reg); err != nil {
			logger.Error("Could not write metrics", zap.String("path", path), zap.Error(err))
		}
	}
	if runErr != nil {
		return fmt.Errorf("node %d: %w", index, runErr)
	}
	logger.Info("Node finished",
		zap.String("output", out.Path()),
		zap.Int("results", out.Written()),
		zap.Int("flushes", out.Flushes()))
	return nil
}
