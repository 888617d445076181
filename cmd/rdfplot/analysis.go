// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"log/slog"

	"github.com/kballard/go-shellquote"

	"github.com/aclements/rdfana/ana"
	"github.com/aclements/rdfana/frame"
	"github.com/aclements/rdfana/internal/archive"
	"github.com/aclements/rdfana/internal/config"
	"github.com/aclements/rdfana/internal/sink"
)

// An analysis is a configuration turned into booked collections.
type analysis struct {
	cfg     *config.Analysis
	samples *ana.SampleCollection
	regions *ana.Regions
	store   sink.Store
	archive *archive.Archive
	logger  *slog.Logger

	plots  []booked
	tables []*ana.TableCollection
}

type booked struct {
	pc   *ana.PlotCollection
	each bool
}

// newAnalysis opens the samples of cfg and applies its definitions
// and filters. Nothing is read yet.
func newAnalysis(ctx context.Context, cfg *config.Analysis, g *globals) (*analysis, error) {
	dir := cfg.Output.Dir
	if g.output != "" {
		dir = g.output
	}
	store, err := sink.Open(ctx, dir)
	if err != nil {
		return nil, err
	}
	a := &analysis{cfg: cfg, store: store, logger: g.logger}
	if cfg.Parallelism > 0 && g.parallel == 1 {
		frame.SetParallelism(cfg.Parallelism)
	}
	if cfg.Output.ROOT || cfg.Output.YODA != "" {
		a.archive = archive.New(store, archive.WithLogger(g.logger), archive.WithYODA(cfg.Output.YODA))
	}

	leaves := make(map[string]*ana.Sample)
	for _, s := range cfg.Samples {
		src, err := frame.Open(s.Tree, shellquote.Join(s.Files...))
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", s.Name, err)
		}
		opts := []ana.SampleOption{
			ana.WithDescription(s.Description),
			ana.WithLogger(g.logger),
			ana.WithFrameOptions(g.frameOptions()...),
		}
		if s.Data {
			opts = append(opts, ana.AsData())
		}
		if s.Lumi != 0 {
			opts = append(opts, ana.WithLuminosity(s.Lumi))
		}
		smp := ana.NewSample(s.Name, src, orBlack(s.Color.Color), opts...)
		for _, f := range s.Flags {
			smp.AddFlag(f)
		}
		if s.XSec != 0 {
			smp.SetCrossSection(s.XSec)
		}
		if s.Weights != nil {
			smp.SetWeightBranches(s.Weights.Lumi, s.Weights.Fill)
		}
		leaves[s.Name] = smp
	}

	// A composite takes the place of its first member.
	first := make(map[string]*ana.Composite)
	member := make(map[string]bool)
	for _, c := range cfg.Composites {
		var ls []*ana.Sample
		for _, name := range c.Samples {
			ls = append(ls, leaves[name])
			member[name] = true
		}
		opts := []ana.SampleOption{ana.WithDescription(c.Description)}
		if c.Data {
			opts = append(opts, ana.AsData())
		}
		comp := ana.NewComposite(c.Name, orBlack(c.Color.Color), ls, opts...)
		for _, f := range c.Flags {
			comp.AddFlag(f)
		}
		if len(c.Samples) > 0 {
			first[c.Samples[0]] = comp
		}
	}
	a.samples = ana.NewSampleCollection(g.logger)
	for _, s := range cfg.Samples {
		switch {
		case first[s.Name] != nil:
			a.samples.Add(first[s.Name])
		case !member[s.Name]:
			a.samples.Add(leaves[s.Name])
		}
	}

	for _, d := range cfg.Defines {
		a.samples.Define(d.Name, d.Expr, d.Flags...)
	}
	for _, f := range cfg.Filters {
		a.samples.Filter(f.Expr, f.Description, f.Flags...)
	}

	if len(cfg.Regions) > 0 {
		a.regions = ana.NewRegions(g.logger)
		for _, r := range cfg.Regions {
			if err := a.regions.Add(r.Name, r.Cut, r.Description); err != nil {
				return nil, err
			}
			for _, o := range r.Overrides {
				if err := a.regions.SetFlagCut(r.Name, o.Flag, o.Cut); err != nil {
					return nil, err
				}
			}
		}
	}
	return a, nil
}

func orBlack(c color.Color) color.Color {
	if c == nil {
		return color.Black
	}
	return c
}

func axis(a config.Axis) ana.Axis {
	if a.Edges != nil {
		return ana.NewVarAxis(a.Name, a.Label, a.Edges, a.Units)
	}
	return ana.NewAxis(a.Name, a.Label, a.Bins, a.Low, a.High, a.Units)
}

var combineStyles = map[string]ana.CombineStyle{"": ana.Overlay, "overlay": ana.Overlay, "stack": ana.Stack}

var bottomStyles = map[string]ana.BottomStyle{
	"":                       ana.NoBottom,
	"none":                   ana.NoBottom,
	"ratio":                  ana.Ratio,
	"upper_cut_significance": ana.UpperCutSignificance,
	"lower_cut_significance": ana.LowerCutSignificance,
}

// bookPlots books every plot of the configuration.
func (a *analysis) bookPlots(ext string) error {
	if ext == "" {
		ext = a.cfg.Output.Extension
	}
	for i, p := range a.cfg.Plots {
		x, _ := a.cfg.Axis(p.X)
		regions := a.regions
		if p.NoRegions {
			regions = nil
		}
		var (
			pc  *ana.PlotCollection
			err error
		)
		switch {
		case p.Y == "" && p.Efficiency == nil:
			pc, err = a.samples.Book1D(axis(x), regions)
		case p.Y == "":
			pc, err = a.samples.Book1DEfficiency(axis(x), p.Efficiency.Cut, p.Efficiency.Description, regions)
		case p.Efficiency == nil:
			y, _ := a.cfg.Axis(p.Y)
			pc, err = a.samples.Book2D(axis(x), axis(y), regions)
		default:
			y, _ := a.cfg.Axis(p.Y)
			pc, err = a.samples.Book2DEfficiency(axis(x), axis(y), p.Efficiency.Cut, p.Efficiency.Description, regions)
		}
		if err != nil {
			return fmt.Errorf("plot %d: %w", i, err)
		}
		pc.SetLuminosity(a.cfg.Luminosity).
			SetLogY(p.LogY).
			SetCombineStyle(combineStyles[p.Style]).
			SetBottomStyle(bottomStyles[p.Bottom]).
			SetFileExtension(ext).
			SetOutput(a.store).
			SetLogger(a.logger)
		if a.archive != nil {
			pc.SetSaveROOT(true).SetArchive(a.archive)
		}
		a.plots = append(a.plots, booked{pc, p.Each || pc.Is2D() || pc.IsEfficiency()})
	}
	return nil
}

// bookTables books one cutflow table per configured table.
func (a *analysis) bookTables() {
	for range a.cfg.Tables {
		a.tables = append(a.tables, a.samples.BookCutflowTable().SetOutput(a.store))
	}
}

// fill runs the event loop of every sample once.
func (a *analysis) fill(ctx context.Context) error {
	var fs []*frame.Frame
	for _, s := range a.samples.Samples() {
		fs = append(fs, s.Frame())
	}
	return frame.RunAll(ctx, fs...)
}

// draw draws every booked plot, continuing past failures.
func (a *analysis) draw(ctx context.Context) error {
	var errs []error
	for _, b := range a.plots {
		if b.each {
			errs = append(errs, b.pc.DrawEach(ctx))
		} else {
			errs = append(errs, b.pc.Draw(ctx))
		}
	}
	return errors.Join(errs...)
}

// writeTables prints the tables to w, if non-nil, and saves them.
func (a *analysis) writeTables(ctx context.Context, w io.Writer, save bool) error {
	var errs []error
	for i, t := range a.tables {
		if w != nil {
			errs = append(errs, t.Print(ctx, w))
		}
		if !save {
			continue
		}
		tc := a.cfg.Tables[i]
		if tc.File != "" {
			errs = append(errs, t.Save(ctx, tc.File))
		}
		if tc.XLSX != "" {
			errs = append(errs, t.SaveXLSX(ctx, tc.XLSX))
		}
	}
	return errors.Join(errs...)
}

func (a *analysis) close(ctx context.Context) error {
	if a.archive == nil {
		return nil
	}
	return a.archive.Close(ctx)
}
