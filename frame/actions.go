// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"errors"
	"fmt"

	"github.com/aclements/go-moremath/vec"
	"go-hep.org/x/hep/hbook"
)

// Binning describes the bins of one histogram axis: either NBins
// uniform bins over [Low, High) or, if Edges is non-nil, the bins
// between consecutive edges.
type Binning struct {
	NBins     int
	Low, High float64
	Edges     []float64
}

// ErrBadBinning is returned when booking a histogram whose binning
// has no bins or unordered edges.
var ErrBadBinning = errors.New("bad binning")

// Validate checks that b describes at least one bin with strictly
// increasing edges.
func (b Binning) Validate() error {
	if b.Edges != nil {
		if len(b.Edges) < 2 {
			return fmt.Errorf("%w: %d edges", ErrBadBinning, len(b.Edges))
		}
		if b.NBins != 0 && b.NBins != len(b.Edges)-1 {
			return fmt.Errorf("%w: %d bins but %d edges", ErrBadBinning, b.NBins, len(b.Edges))
		}
		for i := 1; i < len(b.Edges); i++ {
			if !(b.Edges[i] > b.Edges[i-1]) {
				return fmt.Errorf("%w: edges not increasing at %d", ErrBadBinning, i)
			}
		}
		return nil
	}
	if b.NBins < 1 {
		return fmt.Errorf("%w: %d bins", ErrBadBinning, b.NBins)
	}
	if !(b.Low < b.High) {
		return fmt.Errorf("%w: range [%g, %g)", ErrBadBinning, b.Low, b.High)
	}
	return nil
}

// Uniform reports whether all bins of b have the same width.
func (b Binning) Uniform() bool {
	return b.Edges == nil
}

// BinEdges returns the NBins+1 bin edges of b.
func (b Binning) BinEdges() []float64 {
	if b.Edges != nil {
		return append([]float64(nil), b.Edges...)
	}
	return vec.Linspace(b.Low, b.High, b.NBins+1)
}

// H1Model names and bins a one-dimensional histogram.
type H1Model struct {
	Name, Title string
	Binning
}

func (m H1Model) new() *hbook.H1D {
	var h *hbook.H1D
	if m.Edges != nil {
		h = hbook.NewH1DFromEdges(m.BinEdges())
	} else {
		h = hbook.NewH1D(m.NBins, m.Low, m.High)
	}
	annotate(&h.Ann, m.Name, m.Title)
	return h
}

// H2Model names and bins a two-dimensional histogram.
type H2Model struct {
	Name, Title string
	X, Y        Binning
}

func (m H2Model) new() *hbook.H2D {
	var h *hbook.H2D
	if m.X.Edges != nil || m.Y.Edges != nil {
		h = hbook.NewH2DFromEdges(m.X.BinEdges(), m.Y.BinEdges())
	} else {
		h = hbook.NewH2D(m.X.NBins, m.X.Low, m.X.High, m.Y.NBins, m.Y.Low, m.Y.High)
	}
	annotate(&h.Ann, m.Name, m.Title)
	return h
}

func annotate(ann *hbook.Annotation, name, title string) {
	if *ann == nil {
		*ann = make(hbook.Annotation)
	}
	(*ann)["name"] = name
	(*ann)["title"] = title
}

// Histo1D books a histogram of column on v. If weight is not empty,
// each entry is weighted by that column. Slice-valued columns fill
// one entry per element.
func (v *View) Histo1D(m H1Model, column, weight string) (*Result[*hbook.H1D], error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("histogram %q: %w", m.Name, err)
	}
	a := &histo1D{n: v.n, m: m, col: column, weight: weight, res: newResult[*hbook.H1D](v.f)}
	v.f.book(a)
	return a.res, nil
}

// Histo2D books a histogram of (x, y) on v. Slice-valued columns
// fill element-wise and must have equal lengths, or one of them
// must be a scalar.
func (v *View) Histo2D(m H2Model, x, y, weight string) (*Result[*hbook.H2D], error) {
	if err := m.X.Validate(); err != nil {
		return nil, fmt.Errorf("histogram %q x axis: %w", m.Name, err)
	}
	if err := m.Y.Validate(); err != nil {
		return nil, fmt.Errorf("histogram %q y axis: %w", m.Name, err)
	}
	a := &histo2D{n: v.n, m: m, x: x, y: y, weight: weight, res: newResult[*hbook.H2D](v.f)}
	v.f.book(a)
	return a.res, nil
}

// Sum books the sum of column over the rows of v.
func (v *View) Sum(column string) *Result[float64] {
	a := &sum{n: v.n, col: column, res: newResult[float64](v.f)}
	v.f.book(a)
	return a.res
}

// Count books the number of rows of v.
func (v *View) Count() *Result[int64] {
	a := &count{n: v.n, res: newResult[int64](v.f)}
	v.f.book(a)
	return a.res
}

// Report books a cutflow report of the named filters between the
// root and v.
func (v *View) Report() *Result[*Report] {
	a := &report{n: v.n, res: newResult[*Report](v.f)}
	v.f.book(a)
	return a.res
}

// column resolves the named column as seen from n.
func (l *loop) column(n *node, name string) (getter, error) {
	g, ok := l.resolve(n, name)
	if !ok {
		return getter{}, fmt.Errorf("unknown column %q", name)
	}
	return g, nil
}

// weights returns the weights to pair with n values.
func weights(w []float64, n int) ([]float64, error) {
	switch len(w) {
	case 1:
		return w, nil
	case n:
		return w, nil
	}
	return nil, fmt.Errorf("%d weights for %d values", len(w), n)
}

type histo1D struct {
	n         *node
	m         H1Model
	col       string
	weight    string
	x, w      getter
	h         *hbook.H1D
	xbuf, wbf []float64
	res       *Result[*hbook.H1D]
}

func (a *histo1D) tip() *node { return a.n }

func (a *histo1D) prepare(l *loop) (err error) {
	if err := l.prepare(a.n); err != nil {
		return err
	}
	if a.x, err = l.column(a.n, a.col); err != nil {
		return fmt.Errorf("histogram %q: %w", a.m.Name, err)
	}
	if a.weight != "" {
		if a.w, err = l.column(a.n, a.weight); err != nil {
			return fmt.Errorf("histogram %q: %w", a.m.Name, err)
		}
	}
	a.h = a.m.new()
	return nil
}

func (a *histo1D) exec(l *loop) error {
	xs, err := floats(a.x.get(l), a.xbuf)
	if err != nil {
		return fmt.Errorf("histogram %q column %q: %w", a.m.Name, a.col, err)
	}
	a.xbuf = xs
	ws := []float64{1}
	if a.weight != "" {
		if ws, err = floats(a.w.get(l), a.wbf); err != nil {
			return fmt.Errorf("histogram %q weight %q: %w", a.m.Name, a.weight, err)
		}
		a.wbf = ws
		if ws, err = weights(ws, len(xs)); err != nil {
			return fmt.Errorf("histogram %q: %w", a.m.Name, err)
		}
	}
	for i, x := range xs {
		w := ws[0]
		if len(ws) > 1 {
			w = ws[i]
		}
		a.h.Fill(x, w)
	}
	return nil
}

func (a *histo1D) finish(err error) { a.res.set(a.h, err) }

type histo2D struct {
	n          *node
	m          H2Model
	x, y       string
	weight     string
	gx, gy, gw getter
	h          *hbook.H2D
	res        *Result[*hbook.H2D]
}

func (a *histo2D) tip() *node { return a.n }

func (a *histo2D) prepare(l *loop) (err error) {
	if err := l.prepare(a.n); err != nil {
		return err
	}
	if a.gx, err = l.column(a.n, a.x); err != nil {
		return fmt.Errorf("histogram %q: %w", a.m.Name, err)
	}
	if a.gy, err = l.column(a.n, a.y); err != nil {
		return fmt.Errorf("histogram %q: %w", a.m.Name, err)
	}
	if a.weight != "" {
		if a.gw, err = l.column(a.n, a.weight); err != nil {
			return fmt.Errorf("histogram %q: %w", a.m.Name, err)
		}
	}
	a.h = a.m.new()
	return nil
}

func (a *histo2D) exec(l *loop) error {
	xs, err := floats(a.gx.get(l), nil)
	if err != nil {
		return fmt.Errorf("histogram %q column %q: %w", a.m.Name, a.x, err)
	}
	ys, err := floats(a.gy.get(l), nil)
	if err != nil {
		return fmt.Errorf("histogram %q column %q: %w", a.m.Name, a.y, err)
	}
	n := max(len(xs), len(ys))
	if (len(xs) != n && len(xs) != 1) || (len(ys) != n && len(ys) != 1) {
		return fmt.Errorf("histogram %q: %d x values and %d y values", a.m.Name, len(xs), len(ys))
	}
	ws := []float64{1}
	if a.weight != "" {
		if ws, err = floats(a.gw.get(l), nil); err != nil {
			return fmt.Errorf("histogram %q weight %q: %w", a.m.Name, a.weight, err)
		}
		if ws, err = weights(ws, n); err != nil {
			return fmt.Errorf("histogram %q: %w", a.m.Name, err)
		}
	}
	at := func(s []float64, i int) float64 {
		if len(s) == 1 {
			return s[0]
		}
		return s[i]
	}
	for i := 0; i < n; i++ {
		a.h.Fill(at(xs, i), at(ys, i), at(ws, i))
	}
	return nil
}

func (a *histo2D) finish(err error) { a.res.set(a.h, err) }

type sum struct {
	n   *node
	col string
	g   getter
	buf []float64
	acc float64
	res *Result[float64]
}

func (a *sum) tip() *node { return a.n }

func (a *sum) prepare(l *loop) (err error) {
	if err := l.prepare(a.n); err != nil {
		return err
	}
	a.acc = 0
	if a.g, err = l.column(a.n, a.col); err != nil {
		return fmt.Errorf("sum: %w", err)
	}
	return nil
}

func (a *sum) exec(l *loop) error {
	xs, err := floats(a.g.get(l), a.buf)
	if err != nil {
		return fmt.Errorf("sum of %q: %w", a.col, err)
	}
	a.buf = xs
	for _, x := range xs {
		a.acc += x
	}
	return nil
}

func (a *sum) finish(err error) { a.res.set(a.acc, err) }

type count struct {
	n   *node
	acc int64
	res *Result[int64]
}

func (a *count) tip() *node { return a.n }

func (a *count) prepare(l *loop) error {
	a.acc = 0
	return l.prepare(a.n)
}

func (a *count) exec(l *loop) error {
	a.acc++
	return nil
}

func (a *count) finish(err error) { a.res.set(a.acc, err) }

type report struct {
	n   *node
	res *Result[*Report]
}

func (a *report) tip() *node { return a.n }

func (a *report) prepare(l *loop) error { return l.prepare(a.n) }

func (a *report) exec(l *loop) error { return nil }

func (a *report) finish(err error) {
	if err != nil {
		a.res.set(nil, err)
		return
	}
	r := new(Report)
	for _, n := range a.n.chain() {
		if n.kind == filterNode && n.name != "" {
			r.Cuts = append(r.Cuts, CutInfo{Name: n.name, Pass: n.pass, All: n.all})
		}
	}
	a.res.set(r, nil)
}
