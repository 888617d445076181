// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go-hep.org/x/hep/hbook"

	"github.com/aclements/rdfana/frame"
	"github.com/aclements/rdfana/internal/archive"
	"github.com/aclements/rdfana/internal/sink"
	"github.com/aclements/rdfana/render"
)

// DefaultExtension is the default image format of drawn plots.
const DefaultExtension = "png"

var (
	ErrNotBooked         = errors.New("nothing booked")
	ErrWrongKind         = errors.New("operation not supported for this kind of plot")
	ErrUnsupportedBottom = errors.New("unsupported bottom panel")
)

// CombineStyle selects how Draw combines the entries of a
// collection.
type CombineStyle int

const (
	Overlay CombineStyle = iota
	Stack
)

func (s CombineStyle) String() string {
	switch s {
	case Overlay:
		return "overlay"
	case Stack:
		return "stack"
	}
	return fmt.Sprintf("CombineStyle(%d)", int(s))
}

// BottomStyle selects the panel drawn below a combined plot.
type BottomStyle int

const (
	NoBottom BottomStyle = iota
	Ratio
	UpperCutSignificance
	LowerCutSignificance
)

func (s BottomStyle) String() string {
	switch s {
	case NoBottom:
		return "none"
	case Ratio:
		return "ratio"
	case UpperCutSignificance:
		return "upper_cut_significance"
	case LowerCutSignificance:
		return "lower_cut_significance"
	}
	return fmt.Sprintf("BottomStyle(%d)", int(s))
}

type kind int

const (
	hist1D kind = iota
	eff1D
	hist2D
	eff2D
)

func (k kind) is2D() bool  { return k == hist2D || k == eff2D }
func (k kind) isEff() bool { return k == eff1D || k == eff2D }

// A cell holds the histograms of one entry in one region: one
// result per leaf, summed when first read.
type cell struct {
	name  string
	title Title

	h1, den1 []*frame.Result[*hbook.H1D]
	h2, den2 []*frame.Result[*hbook.H2D]

	// Unscaled snapshots.
	raw1, rawDen1 render.H1
	raw2, rawDen2 render.H2
}

// A PlotCollection holds the histograms booked for every entry of a
// SampleCollection in every region.
type PlotCollection struct {
	kind    kind
	x, y    Axis
	entries []Entry
	regions *Regions // nil if unregioned
	cells   [][]*cell
	frames  []*frame.Frame

	lumi     float64
	logY     bool
	combine  CombineStyle
	bottom   BottomStyle
	sortHist bool
	ext      string
	saveROOT bool
	out      sink.Store
	archive  *archive.Archive
	logger   *slog.Logger

	mu     sync.Mutex
	loaded bool
}

func newPlotCollection(k kind, x, y Axis, entries []Entry, regions *Regions, logger *slog.Logger) *PlotCollection {
	return &PlotCollection{
		kind:     k,
		x:        x,
		y:        y,
		entries:  entries,
		regions:  regions,
		lumi:     1,
		sortHist: true,
		ext:      DefaultExtension,
		logger:   logger,
	}
}

// SetLuminosity sets the factor applied to simulated histograms when
// they are read. It replaces any earlier factor. Data and efficiency
// histograms are never scaled.
func (pc *PlotCollection) SetLuminosity(l float64) *PlotCollection {
	pc.lumi = l
	return pc
}

// SetLogY selects a logarithmic y axis.
func (pc *PlotCollection) SetLogY(log bool) *PlotCollection {
	pc.logY = log
	return pc
}

// SetCombineStyle selects how Draw combines entries.
func (pc *PlotCollection) SetCombineStyle(s CombineStyle) *PlotCollection {
	pc.combine = s
	return pc
}

// SetBottomStyle selects the panel below combined plots.
func (pc *PlotCollection) SetBottomStyle(s BottomStyle) *PlotCollection {
	pc.bottom = s
	return pc
}

// SetSortHistograms controls whether stacks are ordered by
// integral. It is on by default.
func (pc *PlotCollection) SetSortHistograms(sort bool) *PlotCollection {
	pc.sortHist = sort
	return pc
}

// SetFileExtension sets the image format of drawn plots.
func (pc *PlotCollection) SetFileExtension(ext string) *PlotCollection {
	if ext == "" {
		ext = DefaultExtension
	}
	pc.ext = ext
	return pc
}

// SetSaveROOT also stores every drawn histogram in the ROOT archive.
func (pc *PlotCollection) SetSaveROOT(save bool) *PlotCollection {
	pc.saveROOT = save
	return pc
}

// SetOutput sets the store plots are written to. The default is the
// current directory.
func (pc *PlotCollection) SetOutput(s sink.Store) *PlotCollection {
	pc.out = s
	return pc
}

// SetArchive sets the archive drawn histograms are added to when
// saving to ROOT. Without one, each Draw or DrawEach writes its own.
func (pc *PlotCollection) SetArchive(a *archive.Archive) *PlotCollection {
	pc.archive = a
	return pc
}

// SetLogger sets the logger for render failures.
func (pc *PlotCollection) SetLogger(l *slog.Logger) *PlotCollection {
	if l != nil {
		pc.logger = l
	}
	return pc
}

// IsEfficiency reports whether pc holds efficiency histograms.
func (pc *PlotCollection) IsEfficiency() bool { return pc.kind.isEff() }

// Is2D reports whether pc holds two-dimensional histograms.
func (pc *PlotCollection) Is2D() bool { return pc.kind.is2D() }

// Luminosity returns the current luminosity factor.
func (pc *PlotCollection) Luminosity() float64 { return pc.lumi }

// Len returns the number of entries and regions in pc.
func (pc *PlotCollection) Len() (entries, regions int) {
	if len(pc.cells) == 0 {
		return 0, 0
	}
	return len(pc.cells), len(pc.cells[0])
}

// Name returns the name of the histogram of entry i in region r.
func (pc *PlotCollection) Name(i, r int) string { return pc.cells[i][r].name }

// Title returns the title of the histogram of entry i in region r.
func (pc *PlotCollection) Title(i, r int) Title { return pc.cells[i][r].title }

func (pc *PlotCollection) store() sink.Store {
	if pc.out == nil {
		pc.out = sink.NewFS(".")
	}
	return pc.out
}

// histName returns hist_<x>[_<y>]_<entry>[_<region>].
func (pc *PlotCollection) histName(e Entry, ri int) string {
	name := "hist_" + pc.x.Name
	if pc.kind.is2D() {
		name += "_" + pc.y.Name
	}
	name += "_" + e.Meta().Name
	if ri >= 0 {
		name += "_" + pc.regions.Name(ri)
	}
	return name
}

func (pc *PlotCollection) histTitle(e Entry, ri int, numDesc string) Title {
	var regDesc string
	if ri >= 0 {
		regDesc = pc.regions.Description(ri)
	}
	sel := selection(e)
	switch pc.kind {
	case hist1D, eff1D:
		t := Title{
			Main: join(", ", join(" ", pc.x.label(), sel), regDesc),
			X:    pc.x.Title(),
			Y:    "Events/" + pc.x.BinSize(),
		}
		if pc.kind == eff1D {
			t.Y = join(" ", "Efficiency", numDesc)
		}
		return t
	default:
		t := Title{
			Main: join(", ", join(" ", pc.y.label(), "vs.", pc.x.label(), sel), regDesc),
			X:    pc.x.Title(),
			Y:    pc.y.Title(),
		}
		if pc.kind == eff2D {
			t = t.withPrefix(join(" ", "Efficiency", numDesc))
		}
		return t
	}
}

// regionName returns the name of column r, or "" if unregioned.
func (pc *PlotCollection) regionName(r int) string {
	if pc.regions == nil {
		return ""
	}
	return pc.regions.Name(r)
}

// load fills every cell of pc, running all sample frames at once.
// Snapshots are taken once; later reads reuse them.
func (pc *PlotCollection) load(ctx context.Context) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.loaded {
		return nil
	}
	if len(pc.cells) == 0 {
		return ErrNotBooked
	}
	if err := frame.RunAll(ctx, pc.frames...); err != nil {
		return err
	}
	for _, row := range pc.cells {
		for _, cl := range row {
			if err := pc.loadCell(ctx, cl); err != nil {
				return fmt.Errorf("%s: %w", cl.name, err)
			}
		}
	}
	pc.loaded = true
	return nil
}

func (pc *PlotCollection) loadCell(ctx context.Context, cl *cell) error {
	var err error
	switch pc.kind {
	case hist1D, eff1D:
		if cl.raw1, err = sum1(ctx, cl.h1, pc.x); err != nil {
			return err
		}
		if pc.kind == eff1D {
			cl.rawDen1, err = sum1(ctx, cl.den1, pc.x)
		}
	case hist2D, eff2D:
		if cl.raw2, err = sum2(ctx, cl.h2, pc.x, pc.y); err != nil {
			return err
		}
		if pc.kind == eff2D {
			cl.rawDen2, err = sum2(ctx, cl.den2, pc.x, pc.y)
		}
	}
	return err
}

func sum1(ctx context.Context, rs []*frame.Result[*hbook.H1D], x Axis) (render.H1, error) {
	if len(rs) == 0 {
		edges := x.BinEdges()
		return render.H1{Edges: edges, W: make([]float64, len(edges)-1), W2: make([]float64, len(edges)-1)}, nil
	}
	var out render.H1
	for i, r := range rs {
		h, err := r.Get(ctx)
		if err != nil {
			return render.H1{}, err
		}
		if i == 0 {
			out = render.FromH1D(h)
			continue
		}
		if out, err = out.Add(render.FromH1D(h)); err != nil {
			return render.H1{}, err
		}
	}
	return out, nil
}

func sum2(ctx context.Context, rs []*frame.Result[*hbook.H2D], x, y Axis) (render.H2, error) {
	xe, ye := x.BinEdges(), y.BinEdges()
	n := (len(xe) - 1) * (len(ye) - 1)
	out := render.H2{XEdges: xe, YEdges: ye, W: make([]float64, n), W2: make([]float64, n)}
	for _, r := range rs {
		h, err := r.Get(ctx)
		if err != nil {
			return render.H2{}, err
		}
		if out, err = out.Add(render.FromH2D(h, xe, ye)); err != nil {
			return render.H2{}, err
		}
	}
	return out, nil
}

// scale returns the luminosity factor for entry i.
func (pc *PlotCollection) scale(i int) float64 {
	if pc.kind.isEff() || isData(pc.entries[i]) {
		return 1
	}
	return pc.lumi
}

func (pc *PlotCollection) check(i, r int) error {
	ne, nr := pc.Len()
	if i < 0 || i >= ne || r < 0 || r >= nr {
		return fmt.Errorf("%w: no histogram at (%d, %d)", ErrNotBooked, i, r)
	}
	return nil
}

// Histogram returns the histogram of entry i in region r, scaled by
// the luminosity unless the entry is data. For efficiency
// collections it is the unscaled numerator.
func (pc *PlotCollection) Histogram(ctx context.Context, i, r int) (render.H1, error) {
	if pc.kind.is2D() {
		return render.H1{}, fmt.Errorf("%w: Histogram of a 2D collection", ErrWrongKind)
	}
	if err := pc.check(i, r); err != nil {
		return render.H1{}, err
	}
	if err := pc.load(ctx); err != nil {
		return render.H1{}, err
	}
	return pc.cells[i][r].raw1.Scaled(pc.scale(i)), nil
}

// Denominator returns the denominator of the efficiency of entry i
// in region r.
func (pc *PlotCollection) Denominator(ctx context.Context, i, r int) (render.H1, error) {
	if pc.kind != eff1D {
		return render.H1{}, fmt.Errorf("%w: Denominator of a non-efficiency collection", ErrWrongKind)
	}
	if err := pc.check(i, r); err != nil {
		return render.H1{}, err
	}
	if err := pc.load(ctx); err != nil {
		return render.H1{}, err
	}
	return pc.cells[i][r].rawDen1.Clone(), nil
}

// Histogram2D returns the 2D histogram of entry i in region r,
// scaled like Histogram.
func (pc *PlotCollection) Histogram2D(ctx context.Context, i, r int) (render.H2, error) {
	if !pc.kind.is2D() {
		return render.H2{}, fmt.Errorf("%w: Histogram2D of a 1D collection", ErrWrongKind)
	}
	if err := pc.check(i, r); err != nil {
		return render.H2{}, err
	}
	if err := pc.load(ctx); err != nil {
		return render.H2{}, err
	}
	return pc.cells[i][r].raw2.Scaled(pc.scale(i)), nil
}

// Efficiency returns the per-bin efficiency of entry i in region r
// with Clopper-Pearson intervals.
func (pc *PlotCollection) Efficiency(ctx context.Context, i, r int) ([]render.EffPoint, error) {
	num, err := pc.Histogram(ctx, i, r)
	if err != nil {
		return nil, err
	}
	den, err := pc.Denominator(ctx, i, r)
	if err != nil {
		return nil, err
	}
	return render.Efficiencies(num, den)
}

// Efficiency2D returns the bin-by-bin efficiency of entry i in
// region r.
func (pc *PlotCollection) Efficiency2D(ctx context.Context, i, r int) (render.H2, error) {
	if pc.kind != eff2D {
		return render.H2{}, fmt.Errorf("%w: Efficiency2D of a non-efficiency collection", ErrWrongKind)
	}
	if err := pc.check(i, r); err != nil {
		return render.H2{}, err
	}
	if err := pc.load(ctx); err != nil {
		return render.H2{}, err
	}
	cl := pc.cells[i][r]
	return cl.raw2.Divide(cl.rawDen2)
}
