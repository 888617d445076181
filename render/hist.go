// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"errors"
	"math"

	"go-hep.org/x/hep/hbook"
)

// ErrBinning is returned when combining histograms with different
// bins.
var ErrBinning = errors.New("histograms have different binning")

// H1 is the displayed content of a one-dimensional histogram.
type H1 struct {
	Edges []float64 // len(W)+1 bin edges
	W     []float64 // sum of weights per bin
	W2    []float64 // sum of squared weights per bin
}

// FromH1D copies the in-range bins of h.
func FromH1D(h *hbook.H1D) H1 {
	bins := h.Binning.Bins
	out := H1{
		Edges: make([]float64, 0, len(bins)+1),
		W:     make([]float64, len(bins)),
		W2:    make([]float64, len(bins)),
	}
	for i := range bins {
		out.Edges = append(out.Edges, bins[i].XMin())
		out.W[i] = bins[i].SumW()
		out.W2[i] = bins[i].SumW2()
	}
	if len(bins) > 0 {
		out.Edges = append(out.Edges, bins[len(bins)-1].XMax())
	}
	return out
}

// ToH1D returns an hbook histogram with the contents of h, named
// and titled for persistence. Bin weights and squared weights are
// copied as they are; moments assume every entry sat at the bin
// center.
func (h H1) ToH1D(name, title string) *hbook.H1D {
	out := hbook.NewH1DFromEdges(h.Edges)
	total := &out.Binning.Dist
	for i, w := range h.W {
		d := &out.Binning.Bins[i].Dist
		setDist1D(d, w, h.W2[i], h.Center(i))
		addDist1D(total, d)
	}
	annotate(&out.Ann, name, title)
	return out
}

// setDist1D sets d to the moments of weight w and squared weight w2
// concentrated at x. The entry count is the effective number of
// entries, w²/w2.
func setDist1D(d *hbook.Dist1D, w, w2, x float64) {
	d.Dist.SumW = w
	d.Dist.SumW2 = w2
	d.Dist.N = 0
	if w2 > 0 {
		d.Dist.N = int64(math.Round(w * w / w2))
	}
	d.Stats.SumWX = w * x
	d.Stats.SumWX2 = w * x * x
}

func addDist1D(dst, src *hbook.Dist1D) {
	dst.Dist.N += src.Dist.N
	dst.Dist.SumW += src.Dist.SumW
	dst.Dist.SumW2 += src.Dist.SumW2
	dst.Stats.SumWX += src.Stats.SumWX
	dst.Stats.SumWX2 += src.Stats.SumWX2
}

func annotate(ann *hbook.Annotation, name, title string) {
	if *ann == nil {
		*ann = make(hbook.Annotation)
	}
	(*ann)["name"] = name
	(*ann)["title"] = title
}

// Len returns the number of bins.
func (h H1) Len() int { return len(h.W) }

// Center returns the center of bin i.
func (h H1) Center(i int) float64 { return (h.Edges[i] + h.Edges[i+1]) / 2 }

// Err returns the statistical uncertainty of bin i.
func (h H1) Err(i int) float64 { return math.Sqrt(h.W2[i]) }

// Max returns the largest bin content, or 0 for an empty histogram.
func (h H1) Max() float64 {
	m := math.Inf(-1)
	for _, w := range h.W {
		m = math.Max(m, w)
	}
	if math.IsInf(m, -1) {
		return 0
	}
	return m
}

// Integral returns the sum of the bin contents.
func (h H1) Integral() float64 {
	var s float64
	for _, w := range h.W {
		s += w
	}
	return s
}

// Clone returns a deep copy of h.
func (h H1) Clone() H1 {
	return H1{
		Edges: append([]float64(nil), h.Edges...),
		W:     append([]float64(nil), h.W...),
		W2:    append([]float64(nil), h.W2...),
	}
}

// Scaled returns h with every bin multiplied by f.
func (h H1) Scaled(f float64) H1 {
	out := h.Clone()
	for i := range out.W {
		out.W[i] *= f
		out.W2[i] *= f * f
	}
	return out
}

// Zero returns an empty histogram with the bins of h.
func (h H1) Zero() H1 {
	return H1{
		Edges: append([]float64(nil), h.Edges...),
		W:     make([]float64, len(h.W)),
		W2:    make([]float64, len(h.W2)),
	}
}

// Add returns the bin-wise sum of h and o.
func (h H1) Add(o H1) (H1, error) {
	if !sameEdges(h.Edges, o.Edges) {
		return H1{}, ErrBinning
	}
	out := h.Clone()
	for i := range out.W {
		out.W[i] += o.W[i]
		out.W2[i] += o.W2[i]
	}
	return out, nil
}

// Divide returns the bin-wise ratio h/den with uncorrelated error
// propagation. Bins where den is zero have ratio and error 0.
func (h H1) Divide(den H1) (H1, error) {
	if !sameEdges(h.Edges, den.Edges) {
		return H1{}, ErrBinning
	}
	out := h.Zero()
	for i := range h.W {
		d := den.W[i]
		if d == 0 {
			continue
		}
		r := h.W[i] / d
		out.W[i] = r
		// (σr/r)² = σn²/n² + σd²/d²
		out.W2[i] = (h.W2[i] + r*r*den.W2[i]) / (d * d)
	}
	return out, nil
}

func sameEdges(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// H2 is the displayed content of a two-dimensional histogram. It
// implements plotter.GridXYZ.
type H2 struct {
	XEdges, YEdges []float64
	W              []float64 // W[iy*nx+ix]
	W2             []float64 // squared weights, laid out like W
}

// FromH2D copies the in-range bins of h, whose bin edges are xedges
// and yedges.
func FromH2D(h *hbook.H2D, xedges, yedges []float64) H2 {
	nx, ny := len(xedges)-1, len(yedges)-1
	out := H2{
		XEdges: append([]float64(nil), xedges...),
		YEdges: append([]float64(nil), yedges...),
		W:      make([]float64, nx*ny),
		W2:     make([]float64, nx*ny),
	}
	for i := range out.W {
		d := &h.Binning.Bins[i].Dist
		out.W[i] = d.SumW()
		out.W2[i] = d.SumW2()
	}
	return out
}

// ToH2D returns an hbook histogram with the contents of h. Bin
// weights and squared weights are copied as they are.
func (h H2) ToH2D(name, title string) *hbook.H2D {
	out := hbook.NewH2DFromEdges(h.XEdges, h.YEdges)
	total := &out.Binning.Dist
	nx, ny := h.Dims()
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			k := j*nx + i
			w, w2 := h.W[k], h.w2(k)
			d := &out.Binning.Bins[k].Dist
			x, y := h.X(i), h.Y(j)
			setDist1D(&d.X, w, w2, x)
			setDist1D(&d.Y, w, w2, y)
			d.Stats.SumWXY = w * x * y
			addDist1D(&total.X, &d.X)
			addDist1D(&total.Y, &d.Y)
			total.Stats.SumWXY += d.Stats.SumWXY
		}
	}
	annotate(&out.Ann, name, title)
	return out
}

// w2 returns the squared weight of bin k. Histograms built without
// squared weights are treated as unweighted.
func (h H2) w2(k int) float64 {
	if len(h.W2) == len(h.W) {
		return h.W2[k]
	}
	return h.W[k]
}

func (h H2) Dims() (c, r int) { return len(h.XEdges) - 1, len(h.YEdges) - 1 }

func (h H2) Z(c, r int) float64 { return h.W[r*(len(h.XEdges)-1)+c] }

func (h H2) X(c int) float64 { return (h.XEdges[c] + h.XEdges[c+1]) / 2 }

func (h H2) Y(r int) float64 { return (h.YEdges[r] + h.YEdges[r+1]) / 2 }

// Clone returns a deep copy of h.
func (h H2) Clone() H2 {
	return H2{
		XEdges: append([]float64(nil), h.XEdges...),
		YEdges: append([]float64(nil), h.YEdges...),
		W:      append([]float64(nil), h.W...),
		W2:     append([]float64(nil), h.W2...),
	}
}

// Scaled returns h with every bin multiplied by f.
func (h H2) Scaled(f float64) H2 {
	out := h.Clone()
	for i := range out.W {
		out.W[i] *= f
	}
	for i := range out.W2 {
		out.W2[i] *= f * f
	}
	return out
}

// Add returns the bin-wise sum of h and o.
func (h H2) Add(o H2) (H2, error) {
	if !sameEdges(h.XEdges, o.XEdges) || !sameEdges(h.YEdges, o.YEdges) {
		return H2{}, ErrBinning
	}
	out := h.Clone()
	if len(out.W2) != len(out.W) {
		out.W2 = make([]float64, len(out.W))
		for i := range out.W {
			out.W2[i] = h.w2(i)
		}
	}
	for i := range out.W {
		out.W[i] += o.W[i]
		out.W2[i] += o.w2(i)
	}
	return out, nil
}

// Divide returns the bin-wise ratio h/den with uncorrelated error
// propagation. Bins where den is zero are 0.
func (h H2) Divide(den H2) (H2, error) {
	if !sameEdges(h.XEdges, den.XEdges) || !sameEdges(h.YEdges, den.YEdges) {
		return H2{}, ErrBinning
	}
	out := h.Clone()
	out.W2 = make([]float64, len(out.W))
	for i := range out.W {
		d := den.W[i]
		if d == 0 {
			out.W[i] = 0
			continue
		}
		r := h.W[i] / d
		out.W[i] = r
		out.W2[i] = (h.w2(i) + r*r*den.w2(i)) / (d * d)
	}
	return out, nil
}

// Max returns the largest bin content.
func (h H2) Max() float64 {
	var m float64
	for i, w := range h.W {
		if i == 0 || w > m {
			m = w
		}
	}
	return m
}

// Min returns the smallest bin content.
func (h H2) Min() float64 {
	var m float64
	for i, w := range h.W {
		if i == 0 || w < m {
			m = w
		}
	}
	return m
}
