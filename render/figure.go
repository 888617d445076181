// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package render draws histograms, stacks, ratio panels, efficiency
// curves and heat maps with gonum/plot.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	// Register the canvas formats accepted by Encode.
	_ "gonum.org/v1/plot/vg/vgeps"
	_ "gonum.org/v1/plot/vg/vgimg"
	_ "gonum.org/v1/plot/vg/vgpdf"
	_ "gonum.org/v1/plot/vg/vgsvg"
)

// Default figure size.
const (
	Width  = 20 * vg.Centimeter
	Height = 15 * vg.Centimeter
)

// Labels holds the title and axis labels of a plot.
type Labels struct {
	Title, X, Y string
}

func (l Labels) apply(p *plot.Plot) {
	p.Title.Text = l.Title
	p.X.Label.Text = l.X
	p.Y.Label.Text = l.Y
}

// Options controls the appearance of a figure.
type Options struct {
	LogY          bool
	Width, Height vg.Length // zero selects the defaults
}

func (o Options) size() (vg.Length, vg.Length) {
	w, h := o.Width, o.Height
	if w == 0 {
		w = Width
	}
	if h == 0 {
		h = Height
	}
	return w, h
}

// A Series is one histogram with its legend entry and color.
type Series struct {
	H     H1
	Label string
	Color color.Color
}

// A Figure is one or more plots laid out on a single canvas.
type Figure struct {
	Width, Height vg.Length
	panels        []panel
}

// panel places a plot in the fraction [x0,x1]x[y0,y1] of the canvas.
type panel struct {
	p              *plot.Plot
	x0, x1, y0, y1 float64
}

func single(p *plot.Plot, o Options) *Figure {
	w, h := o.size()
	return &Figure{Width: w, Height: h, panels: []panel{{p, 0, 1, 0, 1}}}
}

// Plots returns the plots of f from the main panel down.
func (f *Figure) Plots() []*plot.Plot {
	ps := make([]*plot.Plot, len(f.panels))
	for i, pn := range f.panels {
		ps[i] = pn.p
	}
	return ps
}

// Draw draws f on c.
func (f *Figure) Draw(c draw.Canvas) {
	w := c.Max.X - c.Min.X
	h := c.Max.Y - c.Min.Y
	for _, pn := range f.panels {
		dc := draw.Crop(c,
			vg.Length(pn.x0)*w, vg.Length(pn.x1-1)*w,
			vg.Length(pn.y0)*h, vg.Length(pn.y1-1)*h)
		pn.p.Draw(dc)
	}
}

// Encode writes f to w in the named format ("png", "svg", "pdf",
// "eps", "jpg", "tif").
func (f *Figure) Encode(w io.Writer, format string) error {
	c, err := draw.NewFormattedCanvas(f.Width, f.Height, format)
	if err != nil {
		return fmt.Errorf("canvas for %q: %w", format, err)
	}
	f.Draw(draw.New(c))
	_, err = c.WriteTo(w)
	return err
}

// Bytes returns f encoded in the named format.
func (f *Figure) Bytes(format string) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Encode(&buf, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
