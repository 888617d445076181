// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ana

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/aclements/rdfana/frame"
)

// A SampleCollection is an ordered set of samples and composites
// that are defined, filtered and booked together.
type SampleCollection struct {
	entries []Entry
	logger  *slog.Logger
}

// NewSampleCollection returns an empty collection. Collections
// booked from it log to logger (or slog.Default if nil).
func NewSampleCollection(logger *slog.Logger) *SampleCollection {
	if logger == nil {
		logger = slog.Default()
	}
	return &SampleCollection{logger: logger}
}

// Add appends entries to c.
func (c *SampleCollection) Add(entries ...Entry) *SampleCollection {
	c.entries = append(c.entries, entries...)
	return c
}

// Entries returns the entries of c in insertion order.
func (c *SampleCollection) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Samples returns the leaf samples of c in order.
func (c *SampleCollection) Samples() []*Sample {
	var ss []*Sample
	for _, e := range c.entries {
		ss = append(ss, e.Leaves()...)
	}
	return ss
}

// matching returns the leaves carrying at least one of flags, or all
// leaves if flags is empty. Each leaf appears once.
func (c *SampleCollection) matching(flags []string) []*Sample {
	var ss []*Sample
	for _, s := range c.Samples() {
		if len(flags) == 0 {
			ss = append(ss, s)
			continue
		}
		for _, f := range flags {
			if s.HasFlag(f) {
				ss = append(ss, s)
				break
			}
		}
	}
	return ss
}

// Define adds a column computed from expr to the samples matching
// flags.
func (c *SampleCollection) Define(name, expr string, flags ...string) *SampleCollection {
	for _, s := range c.matching(flags) {
		s.Define(name, expr)
	}
	return c
}

// DefineFunc adds a column computed by fn from columns to the
// samples matching flags.
func (c *SampleCollection) DefineFunc(name string, fn any, columns []string, flags ...string) *SampleCollection {
	for _, s := range c.matching(flags) {
		s.DefineFunc(name, fn, columns...)
	}
	return c
}

// Filter applies a cut to the samples matching flags.
func (c *SampleCollection) Filter(expr, description string, flags ...string) *SampleCollection {
	for _, s := range c.matching(flags) {
		s.Filter(expr, description)
	}
	return c
}

// SetLuminosity sets the luminosity of the simulated samples
// matching flags. Data samples are left alone.
func (c *SampleCollection) SetLuminosity(l float64, flags ...string) *SampleCollection {
	for _, s := range c.matching(flags) {
		if !s.IsData() {
			s.SetLuminosity(l)
		}
	}
	return c
}

// SetWeightBranches weights the samples matching flags.
func (c *SampleCollection) SetWeightBranches(lumiCol, fillCol string, flags ...string) *SampleCollection {
	for _, s := range c.matching(flags) {
		s.SetWeightBranches(lumiCol, fillCol)
	}
	return c
}

// frames returns the distinct frames of c's samples.
func (c *SampleCollection) frames() []*frame.Frame {
	var fs []*frame.Frame
	seen := make(map[*frame.Frame]bool)
	for _, s := range c.Samples() {
		if !seen[s.frame] {
			seen[s.frame] = true
			fs = append(fs, s.frame)
		}
	}
	return fs
}

// Book1D books a histogram of axis for every entry in every region.
// If regions is nil, one unregioned histogram is booked per entry.
func (c *SampleCollection) Book1D(axis Axis, regions *Regions) (*PlotCollection, error) {
	return c.book(hist1D, axis, Axis{}, "", "", regions)
}

// Book1DEfficiency books, for every entry in every region, a
// denominator histogram of axis after the region cut and a
// numerator histogram after the region cut and numCut.
func (c *SampleCollection) Book1DEfficiency(axis Axis, numCut, numDesc string, regions *Regions) (*PlotCollection, error) {
	return c.book(eff1D, axis, Axis{}, numCut, numDesc, regions)
}

// Book2D books a histogram of (x, y) for every entry in every
// region.
func (c *SampleCollection) Book2D(x, y Axis, regions *Regions) (*PlotCollection, error) {
	return c.book(hist2D, x, y, "", "", regions)
}

// Book2DEfficiency is the two-dimensional Book1DEfficiency.
func (c *SampleCollection) Book2DEfficiency(x, y Axis, numCut, numDesc string, regions *Regions) (*PlotCollection, error) {
	return c.book(eff2D, x, y, numCut, numDesc, regions)
}

// BookCutflowTable books a cutflow report for every sample.
func (c *SampleCollection) BookCutflowTable() *TableCollection {
	t := &TableCollection{lumi: 1, logger: c.logger}
	for _, s := range c.Samples() {
		t.samples = append(t.samples, s)
		t.reports = append(t.reports, s.view.Report())
	}
	return t
}

func (c *SampleCollection) book(k kind, x, y Axis, numCut, numDesc string, regions *Regions) (*PlotCollection, error) {
	if err := x.Validate(); err != nil {
		return nil, err
	}
	if k.is2D() {
		if err := y.Validate(); err != nil {
			return nil, err
		}
	}
	if k.isEff() && numCut == "" {
		return nil, fmt.Errorf("efficiency of %s: no numerator cut", x.Name)
	}
	pc := newPlotCollection(k, x, y, c.Entries(), regions, c.logger)
	pc.frames = c.frames()

	nreg := 1
	if regions != nil {
		nreg = regions.Len()
	}
	for _, e := range pc.entries {
		row := make([]*cell, nreg)
		for r := range row {
			ri := r
			if regions == nil {
				ri = -1
			}
			cl, err := c.bookCell(pc, e, ri, numCut, numDesc)
			if err != nil {
				return nil, err
			}
			row[r] = cl
		}
		pc.cells = append(pc.cells, row)
	}
	return pc, nil
}

// bookCell books every leaf of e in region ri (-1 for none).
func (c *SampleCollection) bookCell(pc *PlotCollection, e Entry, ri int, numCut, numDesc string) (*cell, error) {
	name, title := pc.histName(e, ri), pc.histTitle(e, ri, numDesc)
	cl := &cell{name: name, title: title}
	x, y := pc.x, pc.y
	for _, s := range e.Leaves() {
		v := s.view
		if ri >= 0 {
			v = v.Filter(pc.regions.Cut(ri, s), "")
		}
		w := s.FillColumn()
		switch pc.kind {
		case hist1D, eff1D:
			m := frame.H1Model{Name: name, Title: title.String(), Binning: x.binning()}
			h, err := v.Histo1D(m, x.Name, w)
			if err != nil {
				return nil, err
			}
			if pc.kind == eff1D {
				cl.den1 = append(cl.den1, h)
				h, err = v.Filter(numCut, "").Histo1D(m, x.Name, w)
				if err != nil {
					return nil, err
				}
			}
			cl.h1 = append(cl.h1, h)
		case hist2D, eff2D:
			m := frame.H2Model{Name: name, Title: title.String(), X: x.binning(), Y: y.binning()}
			h, err := v.Histo2D(m, x.Name, y.Name, w)
			if err != nil {
				return nil, err
			}
			if pc.kind == eff2D {
				cl.den2 = append(cl.den2, h)
				h, err = v.Filter(numCut, "").Histo2D(m, x.Name, y.Name, w)
				if err != nil {
					return nil, err
				}
			}
			cl.h2 = append(cl.h2, h)
		}
	}
	return cl, nil
}

// join joins the non-empty parts of a title with sep.
func join(sep string, parts ...string) string {
	var ps []string
	for _, p := range parts {
		if p != "" {
			ps = append(ps, p)
		}
	}
	return strings.Join(ps, sep)
}
