// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"io"

	"github.com/aclements/go-gg/table"
)

// CutInfo is the outcome of one named filter in an event loop.
type CutInfo struct {
	Name string
	Pass int64 // rows accepted by the filter
	All  int64 // rows that reached the filter
}

// Eff returns the filter efficiency in percent, or 0 if no rows
// reached it.
func (c CutInfo) Eff() float64 {
	if c.All == 0 {
		return 0
	}
	return 100 * float64(c.Pass) / float64(c.All)
}

// A Report is a cutflow: the named filters on the path to a view,
// in the order they were applied.
type Report struct {
	Cuts []CutInfo
}

// At returns the cut called name.
func (r *Report) At(name string) (CutInfo, bool) {
	for _, c := range r.Cuts {
		if c.Name == name {
			return c, true
		}
	}
	return CutInfo{}, false
}

// Table returns r as a table with one row per cut and the columns
// cut, pass, all, eff and cumulative (both efficiencies in percent).
func (r *Report) Table() *table.Table {
	n := len(r.Cuts)
	names := make([]string, n)
	pass := make([]int64, n)
	all := make([]int64, n)
	eff := make([]float64, n)
	cum := make([]float64, n)
	for i, c := range r.Cuts {
		names[i], pass[i], all[i], eff[i] = c.Name, c.Pass, c.All, c.Eff()
		if r.Cuts[0].All != 0 {
			cum[i] = 100 * float64(c.Pass) / float64(r.Cuts[0].All)
		}
	}
	return new(table.Builder).
		Add("cut", names).
		Add("pass", pass).
		Add("all", all).
		Add("eff", eff).
		Add("cumulative", cum).
		Done()
}

// Fprint writes r to w as an aligned table.
func (r *Report) Fprint(w io.Writer) error {
	if len(r.Cuts) == 0 {
		return nil
	}
	return table.Fprint(w, r.Table(), "%s", "%d", "%d", "%.2f %%", "%.2f %%")
}
