// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ana books histograms, efficiency plots and cutflow tables
// across sets of samples and selection regions, and combines them
// for presentation.
//
// A typical analysis builds Samples, adds them to a
// SampleCollection, applies filters and definitions, describes
// Regions, and books Axes into PlotCollections and
// TableCollections. Nothing is read from the samples' sources until
// a collection is drawn, printed or saved, at which point every
// booked result of each sample is filled in a single pass.
package ana

import (
	"fmt"
	"strconv"

	"github.com/aclements/rdfana/frame"
)

// An Axis describes one binned variable.
type Axis struct {
	Name  string // column to histogram
	Label string // axis label; defaults to Name
	Units string

	NBins     int
	Low, High float64
	Edges     []float64 // non-uniform bin edges, if non-nil
}

// NewAxis returns an axis of nbins uniform bins over [low, high).
func NewAxis(name, label string, nbins int, low, high float64, units string) Axis {
	return Axis{Name: name, Label: label, Units: units, NBins: nbins, Low: low, High: high}
}

// NewVarAxis returns an axis whose bins lie between consecutive
// edges.
func NewVarAxis(name, label string, edges []float64, units string) Axis {
	a := Axis{Name: name, Label: label, Units: units, Edges: append([]float64(nil), edges...)}
	a.NBins = len(edges) - 1
	if len(edges) > 0 {
		a.Low, a.High = edges[0], edges[len(edges)-1]
	}
	return a
}

func (a Axis) binning() frame.Binning {
	return frame.Binning{NBins: a.NBins, Low: a.Low, High: a.High, Edges: a.Edges}
}

// Validate checks that a names a column and has at least one bin
// with increasing edges.
func (a Axis) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("axis has no variable name")
	}
	if err := a.binning().Validate(); err != nil {
		return fmt.Errorf("axis %s: %w", a.Name, err)
	}
	return nil
}

// BinEdges returns the NBins+1 edges of a.
func (a Axis) BinEdges() []float64 {
	return a.binning().BinEdges()
}

// Uniform reports whether a has uniform bins.
func (a Axis) Uniform() bool {
	return a.Edges == nil
}

func (a Axis) label() string {
	if a.Label == "" {
		return a.Name
	}
	return a.Label
}

// FormattedUnits returns the units in brackets for axis titles, or
// "" if a has no units.
func (a Axis) FormattedUnits() string {
	if a.Units == "" {
		return ""
	}
	return "[" + a.Units + "]"
}

// BinSize describes the width of one bin, such as "2 GeV", for
// "Events/<size>" axis titles. It is "bin" unless a has uniform
// bins and units.
func (a Axis) BinSize() string {
	if a.Units == "" || !a.Uniform() || a.NBins <= 0 {
		return "bin"
	}
	w := (a.High - a.Low) / float64(a.NBins)
	return strconv.FormatFloat(w, 'g', 4, 64) + " " + a.Units
}

// Title returns the axis title: the label followed by the formatted
// units.
func (a Axis) Title() string {
	if u := a.FormattedUnits(); u != "" {
		return a.label() + " " + u
	}
	return a.label()
}
