// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPlanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print how the sites are split over nodes and cores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			np, err := a.nodePlan(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, np)
			nodes, err := np.Partitions(ctx)
			if err != nil {
				return err
			}
			for i, node := range nodes {
				cp, err := node.Descend(a.cfg.CoreControl())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "node %d: %v\n", i, cp)
			}
			return nil
		},
	}
}
