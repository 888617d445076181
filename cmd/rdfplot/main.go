// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command rdfplot runs an analysis described in a YAML file.
//
// rdfplot run books every plot and table of the analysis, fills them
// in a single pass over each sample, and writes the plots, tables
// and archives to the output directory (or an s3:// or mem:// store).
// rdfplot cutflow prints only the cutflow tables. rdfplot inspect
// prints the columns and first rows of an input.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/aclements/rdfana/frame"
	"github.com/aclements/rdfana/internal/logging"
)

// globals holds the persistent flags and the state they set up.
type globals struct {
	output     string
	ext        string
	logLevel   string
	noColor    bool
	parallel   int
	metrics    string
	cpuProfile string
	memProfile string

	logger   *slog.Logger
	registry *prometheus.Registry
	frameM   *frame.Metrics
	stopProf func()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := new(globals)
	root := &cobra.Command{
		Use:           "rdfplot",
		Short:         "Book, fill and draw histograms and cutflows across samples and regions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return g.teardown()
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&g.output, "output", "o", "", "write results to `dir` (or s3://bucket/prefix, mem://); overrides the analysis file")
	pf.StringVar(&g.ext, "ext", "", "image `format` for plots (png, svg, pdf, eps, jpg, tif)")
	pf.StringVar(&g.logLevel, "log-level", "info", "log `level`: debug, info, warn or error")
	pf.BoolVar(&g.noColor, "no-color", false, "disable colored log output")
	pf.IntVarP(&g.parallel, "parallel", "j", 1, "fill up to `n` samples concurrently")
	pf.StringVar(&g.metrics, "metrics", "", "write event-loop metrics in Prometheus text format to `file`")
	pf.StringVar(&g.cpuProfile, "cpuprofile", "", "write CPU profile to `file`")
	pf.StringVar(&g.memProfile, "memprofile", "", "write heap profile to `file`")

	root.AddCommand(newRunCmd(g), newCutflowCmd(g), newInspectCmd(g))
	return root
}

func (g *globals) setup(cmd *cobra.Command) error {
	level, err := logging.ParseLevel(g.logLevel)
	if err != nil {
		return err
	}
	g.logger = logging.New(cmd.ErrOrStderr(), level, !g.noColor)
	slog.SetDefault(g.logger)

	if g.parallel < 1 {
		return fmt.Errorf("--parallel must be at least 1")
	}
	frame.SetParallelism(g.parallel)

	g.registry = prometheus.NewRegistry()
	g.frameM = frame.NewMetrics(g.registry)

	if g.cpuProfile != "" {
		f, err := os.Create(g.cpuProfile)
		if err != nil {
			return err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return err
		}
		g.stopProf = func() {
			pprof.StopCPUProfile()
			f.Close()
		}
	}
	return nil
}

func (g *globals) teardown() error {
	if g.stopProf != nil {
		g.stopProf()
	}
	if g.memProfile != "" {
		f, err := os.Create(g.memProfile)
		if err != nil {
			return err
		}
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	if g.metrics != "" {
		if err := prometheus.WriteToTextfile(g.metrics, g.registry); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
		g.logger.Debug("wrote metrics", "file", g.metrics, "goroutines", runtime.NumGoroutine())
	}
	return nil
}

// frameOptions returns the options for every sample frame.
func (g *globals) frameOptions() []frame.Option {
	return []frame.Option{frame.WithLogger(g.logger), frame.WithMetrics(g.frameM)}
}
