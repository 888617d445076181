// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ana

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aclements/rdfana/internal/archive"
	"github.com/aclements/rdfana/render"
)

// Draw draws one combined figure per region, overlaying or stacking
// the entries of pc. Each region is drawn even if another fails; the
// failures are logged and returned joined.
func (pc *PlotCollection) Draw(ctx context.Context) error {
	if len(pc.cells) == 0 {
		return ErrNotBooked
	}
	if pc.kind.is2D() {
		return fmt.Errorf("%w: cannot %s 2D histograms", ErrWrongKind, pc.combine)
	}
	if pc.kind.isEff() {
		return fmt.Errorf("%w: cannot %s efficiencies", ErrWrongKind, pc.combine)
	}
	switch pc.bottom {
	case NoBottom:
	case Ratio:
		if pc.combine != Stack {
			return fmt.Errorf("%w: %s under %s", ErrUnsupportedBottom, pc.bottom, pc.combine)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedBottom, pc.bottom)
	}
	if err := pc.load(ctx); err != nil {
		return err
	}

	arch := pc.openArchive()
	var errs []error
	for r := range pc.cells[0] {
		if err := pc.drawRegion(ctx, r, arch); err != nil {
			pc.logger.Error("draw failed", "var", pc.x.Name, "region", pc.regionName(r), "err", err)
			errs = append(errs, err)
		}
	}
	errs = append(errs, pc.closeArchive(ctx, arch))
	return errors.Join(errs...)
}

func (pc *PlotCollection) drawRegion(ctx context.Context, r int, arch *archive.Archive) error {
	var all, mc []render.Series
	var data *render.Series
	for i, e := range pc.entries {
		cl := pc.cells[i][r]
		h := cl.raw1.Scaled(pc.scale(i))
		pc.archive1(arch, cl, h)
		m := e.Meta()
		s := render.Series{H: h, Label: m.Description, Color: m.Color}
		all = append(all, s)
		switch {
		case !isData(e):
			mc = append(mc, s)
		case data == nil:
			data = &s
		case pc.combine == Stack:
			pc.logger.Warn("extra data entry not drawn", "entry", m.Name, "region", pc.regionName(r))
		}
	}

	labels := pc.cells[0][r].title.labels()
	opts := render.Options{LogY: pc.logY}
	var (
		fig  *render.Figure
		name string
		err  error
	)
	switch pc.combine {
	case Overlay:
		fig, err = render.Overlay(reorder(all, render.OverlayOrder(all)), labels, opts)
		name = "overlay"
	case Stack:
		if pc.sortHist {
			mc = reorder(mc, render.StackOrder(mc))
		}
		if pc.bottom == Ratio {
			fig, err = render.StackRatio(mc, data, labels, opts)
			name = "stack_ratio"
		} else {
			fig, err = render.Stack(mc, data, labels, opts)
			name = "stack"
		}
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", pc.x.Name, name, err)
	}
	return pc.write(ctx, fig, pc.x.Name, name, pc.regionName(r))
}

func reorder(ss []render.Series, order []int) []render.Series {
	out := make([]render.Series, len(order))
	for i, j := range order {
		out[i] = ss[j]
	}
	return out
}

// DrawEach draws a separate figure for every entry in every region:
// a histogram, an efficiency graph or a color map.
func (pc *PlotCollection) DrawEach(ctx context.Context) error {
	if len(pc.cells) == 0 {
		return ErrNotBooked
	}
	if err := pc.load(ctx); err != nil {
		return err
	}
	arch := pc.openArchive()
	var errs []error
	for i := range pc.cells {
		for r := range pc.cells[i] {
			if err := pc.drawOne(ctx, i, r, arch); err != nil {
				pc.logger.Error("draw failed", "entry", pc.entries[i].Meta().Name, "region", pc.regionName(r), "err", err)
				errs = append(errs, err)
			}
		}
	}
	errs = append(errs, pc.closeArchive(ctx, arch))
	return errors.Join(errs...)
}

func (pc *PlotCollection) drawOne(ctx context.Context, i, r int, arch *archive.Archive) error {
	m := pc.entries[i].Meta()
	cl := pc.cells[i][r]
	labels := cl.title.withPrefix(m.Description).labels()
	opts := render.Options{LogY: pc.logY}
	reg := pc.regionName(r)

	var (
		fig   *render.Figure
		parts []string
		err   error
	)
	switch pc.kind {
	case hist1D:
		h := cl.raw1.Scaled(pc.scale(i))
		pc.archive1(arch, cl, h)
		fig, err = render.Overlay([]render.Series{{H: h, Label: m.Description, Color: m.Color}}, labels, opts)
		parts = []string{pc.x.Name, m.Name, reg}
	case eff1D:
		pc.archive1(arch, cl, cl.raw1)
		fig, err = render.Efficiency(cl.raw1, cl.rawDen1, m.Color, labels, render.Options{})
		parts = []string{"eff", pc.x.Name, m.Name, reg}
	case hist2D:
		h := cl.raw2.Scaled(pc.scale(i))
		pc.archive2(arch, cl, h)
		fig, err = render.HeatMap(h, labels, opts)
		parts = []string{pc.x.Name, pc.y.Name, m.Name, reg}
	case eff2D:
		var eff render.H2
		if eff, err = cl.raw2.Divide(cl.rawDen2); err == nil {
			pc.archive2(arch, cl, cl.raw2)
			fig, err = render.HeatMap(eff, labels, opts)
		}
		parts = []string{"eff", pc.x.Name, pc.y.Name, m.Name, reg}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", cl.name, err)
	}
	return pc.write(ctx, fig, parts...)
}

// plotKey returns plots/<parts joined by _>.<ext>, skipping empty
// parts.
func (pc *PlotCollection) plotKey(parts ...string) string {
	return path.Join("plots", join("_", parts...)+"."+strings.TrimPrefix(pc.ext, "."))
}

func (pc *PlotCollection) write(ctx context.Context, fig *render.Figure, parts ...string) error {
	b, err := fig.Bytes(strings.TrimPrefix(pc.ext, "."))
	if err != nil {
		return err
	}
	key := pc.plotKey(parts...)
	if err := pc.store().Put(ctx, key, b); err != nil {
		return err
	}
	pc.logger.Debug("wrote plot", "key", key, "bytes", len(b))
	return nil
}

// openArchive returns the archive drawn histograms go to, or nil if
// pc does not save to ROOT.
func (pc *PlotCollection) openArchive() *archive.Archive {
	if !pc.saveROOT {
		return nil
	}
	if pc.archive != nil {
		return pc.archive
	}
	return archive.New(pc.store(), archive.WithLogger(pc.logger))
}

// closeArchive writes arch if pc created it.
func (pc *PlotCollection) closeArchive(ctx context.Context, arch *archive.Archive) error {
	if arch == nil || arch == pc.archive {
		return nil
	}
	return arch.Close(ctx)
}

func (pc *PlotCollection) archive1(arch *archive.Archive, cl *cell, h render.H1) {
	if arch == nil {
		return
	}
	arch.AddH1(h.ToH1D(cl.name, cl.title.String()))
	if pc.kind == eff1D {
		arch.AddH1(cl.rawDen1.ToH1D(cl.name+"_den", cl.title.String()))
	}
}

func (pc *PlotCollection) archive2(arch *archive.Archive, cl *cell, h render.H2) {
	if arch == nil {
		return
	}
	arch.AddH2(h.ToH2D(cl.name, cl.title.String()))
	if pc.kind == eff2D {
		arch.AddH2(cl.rawDen2.ToH2D(cl.name+"_den", cl.title.String()))
	}
}
