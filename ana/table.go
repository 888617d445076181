// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ana

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/aclements/rdfana/frame"
	"github.com/aclements/rdfana/internal/sink"
)

var (
	ErrNoTables    = errors.New("no tables booked")
	ErrCutMismatch = errors.New("samples have different numbers of cuts")
)

// A TableCollection holds the cutflow reports of a set of samples.
type TableCollection struct {
	samples []*Sample
	reports []*frame.Result[*frame.Report]
	lumi    float64
	out     sink.Store
	logger  *slog.Logger
}

// SetLuminosity records a luminosity for the table. Yields are
// scaled by each sample's own ScaleWeight, so it has no effect on
// the numbers.
func (t *TableCollection) SetLuminosity(l float64) *TableCollection {
	t.lumi = l
	return t
}

// SetOutput sets the store tables are written to. The default is
// the current directory.
func (t *TableCollection) SetOutput(s sink.Store) *TableCollection {
	t.out = s
	return t
}

func (t *TableCollection) store() sink.Store {
	if t.out == nil {
		t.out = sink.NewFS(".")
	}
	return t.out
}

// A TableCell is the yield of one sample after one cut.
type TableCell struct {
	Yield float64
	// Eff is the efficiency of the cut: the ratio to the previous
	// yield for weighted samples, or the pass percentage reported
	// by the frame otherwise. It is meaningless if !HasEff.
	Eff    float64
	HasEff bool
}

// A TableRow is one cut across all samples.
type TableRow struct {
	Cut   string
	Cells []TableCell
}

func (t *TableCollection) run(ctx context.Context) error {
	var fs []*frame.Frame
	for _, s := range t.samples {
		fs = append(fs, s.frame)
	}
	return frame.RunAll(ctx, fs...)
}

// column computes the cells of sample i, one per cut.
func (t *TableCollection) column(ctx context.Context, i int) ([]TableCell, error) {
	s := t.samples[i]
	if s.weighted {
		ys, err := s.Yields(ctx)
		if err != nil {
			return nil, err
		}
		scale := 1.0
		if !s.IsData() {
			if scale, err = s.ScaleWeight(ctx); err != nil {
				return nil, err
			}
		}
		cells := make([]TableCell, len(ys))
		prev := 0.0
		for j, y := range ys {
			y *= scale
			cells[j].Yield = y
			if j > 0 && prev != 0 {
				cells[j].Eff, cells[j].HasEff = y/prev, true
			}
			prev = y
		}
		return cells, nil
	}
	rep, err := t.reports[i].Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", s.meta.Name, err)
	}
	cells := make([]TableCell, len(rep.Cuts))
	for j, c := range rep.Cuts {
		cells[j] = TableCell{Yield: float64(c.Pass), Eff: c.Eff(), HasEff: true}
	}
	return cells, nil
}

// validate checks that every sample has as many cuts as the first.
func (t *TableCollection) validate() error {
	if len(t.samples) == 0 {
		return ErrNoTables
	}
	n := len(t.samples[0].cuts)
	for _, s := range t.samples[1:] {
		if len(s.cuts) != n {
			return fmt.Errorf("%w: %s has %d, %s has %d", ErrCutMismatch, t.samples[0].meta.Name, n, s.meta.Name, len(s.cuts))
		}
	}
	return nil
}

// Rows returns the table as one row per cut of the first sample.
// All samples must have the same number of cuts.
func (t *TableCollection) Rows(ctx context.Context) ([]TableRow, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	if err := t.run(ctx); err != nil {
		return nil, err
	}
	rows := make([]TableRow, len(t.samples[0].cuts))
	for j := range rows {
		rows[j].Cut = t.samples[0].cuts[j]
	}
	for i := range t.samples {
		col, err := t.column(ctx, i)
		if err != nil {
			return nil, err
		}
		for j := range rows {
			var c TableCell
			if j < len(col) {
				c = col[j]
			}
			rows[j].Cells = append(rows[j].Cells, c)
		}
	}
	return rows, nil
}

func num(x float64) string {
	return strconv.FormatFloat(x, 'g', 6, 64)
}

func (c TableCell) effString() string {
	if !c.HasEff {
		return "-"
	}
	return num(c.Eff)
}

// Print writes each sample's frame report followed by its yields and
// efficiencies per cut.
func (t *TableCollection) Print(ctx context.Context, w io.Writer) error {
	if len(t.samples) == 0 {
		return ErrNoTables
	}
	if err := t.run(ctx); err != nil {
		return err
	}
	for i, s := range t.samples {
		rep, err := t.reports[i].Get(ctx)
		if err != nil {
			return fmt.Errorf("sample %s: %w", s.meta.Name, err)
		}
		fmt.Fprintf(w, "%s\nDefault print:\n", s.meta.Description)
		if err := rep.Fprint(w); err != nil {
			return err
		}
		fmt.Fprintf(w, "Custom print:\n")
		col, err := t.column(ctx, i)
		if err != nil {
			return err
		}
		for j, c := range col {
			fmt.Fprintf(w, "%s: %s : %s\n", s.cuts[j], num(c.Yield), c.effString())
		}
	}
	return nil
}

const latexPreamble = `\documentclass[10pt,oneside]{report}
\usepackage{graphicx,xspace,amssymb,amsmath,colordvi,colortbl,verbatim,multicol}
\usepackage{multirow, rotating}
\usepackage[active,tightpage]{preview}
\usepackage{siunitx}
\sisetup{round-mode = figures, round-precision=2}
\renewcommand{\arraystretch}{1.1}

`

// LaTeX returns the table as a standalone LaTeX document.
func (t *TableCollection) LaTeX(ctx context.Context) ([]byte, error) {
	rows, err := t.Rows(ctx)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	b.WriteString(latexPreamble)
	b.WriteString("\\begin{document}\n\\begin{preview}\n")
	b.WriteString("\\begin{tabular}{l" + strings.Repeat("|r|r", len(t.samples)) + "}\\hline\\hline\n")
	b.WriteString("Cut ")
	for _, s := range t.samples {
		fmt.Fprintf(&b, "& %s& Eff.", s.meta.Description)
	}
	b.WriteString("\\\\ \\hline\n")
	for _, r := range rows {
		b.WriteString(r.Cut)
		for _, c := range r.Cells {
			fmt.Fprintf(&b, "& %s& %s", num(c.Yield), c.effString())
		}
		b.WriteString("\\\\ \n")
	}
	b.WriteString("\\hline\\hline \n\\end{tabular}\n\\end{preview}\n\\end{document}\n")
	return b.Bytes(), nil
}

// Save writes the LaTeX table to tables/<filename>. Nothing is
// written if the samples' cut lists differ in length.
func (t *TableCollection) Save(ctx context.Context, filename string) error {
	b, err := t.LaTeX(ctx)
	if err != nil {
		t.logger.Error("table not saved", "file", filename, "err", err)
		return err
	}
	return t.store().Put(ctx, path.Join("tables", filename), b)
}

// SaveXLSX writes the table as a spreadsheet to tables/<filename>.
func (t *TableCollection) SaveXLSX(ctx context.Context, filename string) error {
	rows, err := t.Rows(ctx)
	if err != nil {
		t.logger.Error("table not saved", "file", filename, "err", err)
		return err
	}
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sheet1"
	set := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheet, cell, v)
	}
	if err := set(1, 1, "Cut"); err != nil {
		return err
	}
	for i, s := range t.samples {
		if err := set(2+2*i, 1, s.meta.Description); err != nil {
			return err
		}
		if err := set(3+2*i, 1, "Eff."); err != nil {
			return err
		}
	}
	for j, r := range rows {
		if err := set(1, j+2, r.Cut); err != nil {
			return err
		}
		for i, c := range r.Cells {
			if err := set(2+2*i, j+2, c.Yield); err != nil {
				return err
			}
			var eff any = "-"
			if c.HasEff {
				eff = c.Eff
			}
			if err := set(3+2*i, j+2, eff); err != nil {
				return err
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return err
	}
	return t.store().Put(ctx, path.Join("tables", filename), buf.Bytes())
}
