// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/aclements/rdfana/internal/config"
)

func newRunCmd(g *globals) *cobra.Command {
	var printTables bool
	cmd := &cobra.Command{
		Use:   "run analysis.yaml",
		Short: "Draw every plot and save every table of an analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			a, err := newAnalysis(ctx, cfg, g)
			if err != nil {
				return err
			}
			if err := a.bookPlots(g.ext); err != nil {
				return err
			}
			a.bookTables()
			if err := a.fill(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !printTables {
				out = nil
			}
			err = errors.Join(a.draw(ctx), a.writeTables(ctx, out, true), a.close(ctx))
			if err != nil {
				g.logger.Error("analysis finished with errors", "err", err)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&printTables, "print", false, "also print the cutflow tables")
	return cmd
}

func newCutflowCmd(g *globals) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "cutflow analysis.yaml",
		Short: "Print the cutflow tables of an analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if len(cfg.Tables) == 0 {
				cfg.Tables = []config.Table{{}}
			}
			a, err := newAnalysis(ctx, cfg, g)
			if err != nil {
				return err
			}
			a.bookTables()
			return a.writeTables(ctx, cmd.OutOrStdout(), save)
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "also save the tables named in the analysis")
	return cmd
}
