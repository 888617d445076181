// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ana

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"slices"
	"strings"

	"github.com/aclements/rdfana/frame"
)

// ErrZeroYield is returned by ScaleWeight when the total
// normalization yield of a weighted sample is zero.
var ErrZeroYield = errors.New("zero total yield")

// Meta is the presentation metadata shared by samples and
// composites.
type Meta struct {
	Name        string
	Description string // legend and title text; defaults to Name
	Color       color.Color
	Data        bool // drawn over stacks and never luminosity scaled
	Flags       []string
}

// HasFlag reports whether m carries flag.
func (m *Meta) HasFlag(flag string) bool {
	return slices.Contains(m.Flags, flag)
}

func (m *Meta) addFlag(flag string) {
	if !m.HasFlag(flag) {
		m.Flags = append(m.Flags, flag)
	}
}

// An Entry is an element of a SampleCollection: either a *Sample or
// a *Composite.
type Entry interface {
	Meta() *Meta
	// Leaves returns the samples that are filled for this entry.
	Leaves() []*Sample
}

// A Sample is one dataset read through its own frame, together with
// the filters, definitions and weights applied to it.
type Sample struct {
	meta   Meta
	parent *Composite
	logger *slog.Logger

	frame    *frame.Frame
	view     *frame.View
	cuts     []string
	cutViews []*frame.View

	weighted         bool
	lumiCol, fillCol string
	xsec, lumi       float64
	total            *frame.Result[float64]
	yields           []*frame.Result[float64]
}

// A SampleOption configures a Sample or Composite.
type SampleOption func(*sampleOptions)

type sampleOptions struct {
	desc      string
	data      bool
	lumi      float64
	logger    *slog.Logger
	frameOpts []frame.Option
}

// WithDescription sets the legend description.
func WithDescription(desc string) SampleOption {
	return func(o *sampleOptions) { o.desc = desc }
}

// AsData marks the sample as collision data.
func AsData() SampleOption {
	return func(o *sampleOptions) { o.data = true }
}

// WithLuminosity sets the integrated luminosity, in fb^-1, used to
// scale the sample.
func WithLuminosity(l float64) SampleOption {
	return func(o *sampleOptions) { o.lumi = l }
}

// WithLogger sets the logger for the sample and its frame.
func WithLogger(l *slog.Logger) SampleOption {
	return func(o *sampleOptions) { o.logger = l }
}

// WithFrameOptions passes options to the sample's frame.
func WithFrameOptions(opts ...frame.Option) SampleOption {
	return func(o *sampleOptions) { o.frameOpts = append(o.frameOpts, opts...) }
}

func buildOptions(name string, opts []SampleOption) sampleOptions {
	o := sampleOptions{lumi: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.desc == "" {
		o.desc = name
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// NewSample returns a sample reading src.
func NewSample(name string, src frame.Source, c color.Color, opts ...SampleOption) *Sample {
	o := buildOptions(name, opts)
	fopts := append([]frame.Option{frame.WithLogger(o.logger)}, o.frameOpts...)
	f := frame.New(src, fopts...)
	return &Sample{
		meta:   Meta{Name: name, Description: o.desc, Color: c, Data: o.data},
		logger: o.logger.With("sample", name),
		frame:  f,
		view:   f.Root().Filter("1", ""),
		xsec:   1,
		lumi:   o.lumi,
	}
}

// Meta returns the sample's metadata.
func (s *Sample) Meta() *Meta { return &s.meta }

// Leaves returns s itself.
func (s *Sample) Leaves() []*Sample { return []*Sample{s} }

// Name returns the sample name.
func (s *Sample) Name() string { return s.meta.Name }

// Frame returns the frame s reads through.
func (s *Sample) Frame() *frame.Frame { return s.frame }

// View returns the current filtered view of s.
func (s *Sample) View() *frame.View { return s.view }

// AddFlag adds flag to s.
func (s *Sample) AddFlag(flag string) *Sample {
	s.meta.addFlag(flag)
	return s
}

// HasFlag reports whether s, or the composite containing it, carries
// flag.
func (s *Sample) HasFlag(flag string) bool {
	if s.meta.HasFlag(flag) {
		return true
	}
	return s.parent != nil && s.parent.meta.HasFlag(flag)
}

// IsData reports whether s is collision data. A leaf of a data
// composite counts as data.
func (s *Sample) IsData() bool {
	return s.meta.Data || (s.parent != nil && s.parent.meta.Data)
}

// Filter narrows s to the rows passing expr. The cut is recorded
// under description (or expr, if description is empty) and appears
// in cutflows.
func (s *Sample) Filter(expr, description string) *Sample {
	if description == "" {
		description = expr
	}
	s.view = s.view.Filter(expr, description)
	s.cuts = append(s.cuts, description)
	s.cutViews = append(s.cutViews, s.view)
	if s.weighted {
		s.yields = append(s.yields, s.view.Sum(s.fillCol))
	}
	return s
}

// Define adds a column computed from expr.
func (s *Sample) Define(name, expr string) *Sample {
	s.view = s.view.Define(name, expr)
	return s
}

// DefineFunc adds a column computed by fn from columns.
func (s *Sample) DefineFunc(name string, fn any, columns ...string) *Sample {
	s.view = s.view.DefineFunc(name, fn, columns...)
	return s
}

// Cuts returns the descriptions of the cuts applied to s, in order.
func (s *Sample) Cuts() []string {
	return slices.Clone(s.cuts)
}

// SelectionString returns the cuts of s joined by ", ".
func (s *Sample) SelectionString() string {
	return strings.Join(s.cuts, ", ")
}

// SetWeightBranches weights s. lumiCol is summed over every row of
// the source to normalize the cross section; fillCol (lumiCol if
// empty) weights histogram fills and cutflow yields. Yields are also
// booked for the cuts already applied.
func (s *Sample) SetWeightBranches(lumiCol, fillCol string) *Sample {
	if fillCol == "" {
		fillCol = lumiCol
	}
	s.weighted = true
	s.lumiCol, s.fillCol = lumiCol, fillCol
	s.total = s.frame.Root().Sum(lumiCol)
	s.yields = s.yields[:0]
	for _, v := range s.cutViews {
		s.yields = append(s.yields, v.Sum(fillCol))
	}
	return s
}

// Weighted reports whether SetWeightBranches was called.
func (s *Sample) Weighted() bool { return s.weighted }

// FillColumn returns the fill-weight column, or "" if s is
// unweighted.
func (s *Sample) FillColumn() string {
	if !s.weighted {
		return ""
	}
	return s.fillCol
}

// SetCrossSection sets the cross section, in pb.
func (s *Sample) SetCrossSection(xsec float64) *Sample {
	s.xsec = xsec
	return s
}

// CrossSection returns the cross section, in pb.
func (s *Sample) CrossSection() float64 { return s.xsec }

// SetLuminosity sets the integrated luminosity, in fb^-1.
func (s *Sample) SetLuminosity(l float64) *Sample {
	s.lumi = l
	return s
}

// Luminosity returns the integrated luminosity, in fb^-1.
func (s *Sample) Luminosity() float64 { return s.lumi }

// ScaleWeight returns the factor that normalizes the weighted yield
// of s to its cross section and luminosity:
//
//	xsec * lumi * 1000 / sum(lumiCol)
//
// The 1000 converts pb x fb^-1 to events. Unweighted samples have a
// factor of 1. Reading the total runs the sample's event loop if
// needed.
func (s *Sample) ScaleWeight(ctx context.Context) (float64, error) {
	if !s.weighted {
		return 1, nil
	}
	total, err := s.total.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("sample %s: %w", s.meta.Name, err)
	}
	if total == 0 {
		return 0, fmt.Errorf("sample %s: %w in column %s", s.meta.Name, ErrZeroYield, s.lumiCol)
	}
	return s.xsec * s.lumi * 1000 / total, nil
}

// Yields returns the fill-weighted yield after each cut, unscaled.
// It returns nil for unweighted samples.
func (s *Sample) Yields(ctx context.Context) ([]float64, error) {
	if !s.weighted {
		return nil, nil
	}
	ys := make([]float64, len(s.yields))
	for i, r := range s.yields {
		y, err := r.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("sample %s: %w", s.meta.Name, err)
		}
		ys[i] = y
	}
	return ys, nil
}

// A Composite presents several samples as one entry, for example
// the periods of a data-taking year. Its histograms are the sums of
// its leaves' histograms.
type Composite struct {
	meta   Meta
	leaves []*Sample
}

// NewComposite groups leaves under name. Only WithDescription and
// AsData apply to a composite.
func NewComposite(name string, c color.Color, leaves []*Sample, opts ...SampleOption) *Composite {
	o := buildOptions(name, opts)
	comp := &Composite{
		meta:   Meta{Name: name, Description: o.desc, Color: c, Data: o.data},
		leaves: slices.Clone(leaves),
	}
	for _, l := range comp.leaves {
		l.parent = comp
	}
	return comp
}

// Meta returns the composite's metadata.
func (c *Composite) Meta() *Meta { return &c.meta }

// Leaves returns the samples in c.
func (c *Composite) Leaves() []*Sample { return slices.Clone(c.leaves) }

// AddFlag adds flag to c. Its leaves inherit it.
func (c *Composite) AddFlag(flag string) *Composite {
	c.meta.addFlag(flag)
	return c
}

// HasFlag reports whether c carries flag.
func (c *Composite) HasFlag(flag string) bool {
	return c.meta.HasFlag(flag)
}

// SelectionString returns the selection of the first leaf.
func (c *Composite) SelectionString() string {
	if len(c.leaves) == 0 {
		return ""
	}
	return c.leaves[0].SelectionString()
}

// selection returns the selection string of e.
func selection(e Entry) string {
	switch e := e.(type) {
	case *Sample:
		return e.SelectionString()
	case *Composite:
		return e.SelectionString()
	}
	return ""
}

// isData reports whether e is collision data.
func isData(e Entry) bool {
	return e.Meta().Data
}
