// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"reflect"

	"github.com/aclements/go-gg/gg"
	"github.com/aclements/go-gg/ggstat"
	"github.com/aclements/go-gg/table"
	"github.com/spf13/cobra"

	"github.com/aclements/rdfana/frame"
)

func newInspectCmd(g *globals) *cobra.Command {
	var (
		tree string
		head int
		ecdf string
		out  string
	)
	cmd := &cobra.Command{
		Use:   "inspect source...",
		Short: "Print the columns and first rows of an input",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := frame.Open(tree, args...)
			if err != nil {
				return err
			}
			t, err := src.Load(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s: %d rows\n", src, t.Len())
			if head > 0 && t.Len() > 0 {
				table.Fprint(w, headTable(t, head))
			}
			if ecdf == "" {
				return nil
			}
			if t.Column(ecdf) == nil {
				return fmt.Errorf("no column %q in %s", ecdf, src)
			}
			return writeECDF(t, ecdf, out)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&tree, "tree", "t", frame.DefaultTree, "tree or table `name` to read")
	f.IntVarP(&head, "head", "n", 10, "print the first `n` rows")
	f.StringVar(&ecdf, "ecdf", "", "plot the cumulative distribution of `column`")
	f.StringVar(&out, "ecdf-out", "ecdf.svg", "write the distribution plot to `file`")
	return cmd
}

// headTable returns the first n rows of t.
func headTable(t *table.Table, n int) *table.Table {
	if n >= t.Len() {
		return t
	}
	var b table.Builder
	for _, name := range t.Columns() {
		b.Add(name, reflect.ValueOf(t.Column(name)).Slice(0, n).Interface())
	}
	return b.Done()
}

// writeECDF writes an SVG of the empirical distribution of col.
func writeECDF(t *table.Table, col, path string) error {
	p := gg.NewPlot(t)
	p.Stat(ggstat.ECDF{X: col})
	p.Add(gg.LayerSteps{LayerPaths: gg.LayerPaths{X: col, Y: "cumulative density"}})
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := p.WriteSVG(f, 500, 350); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
