// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"errors"
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Ratio panel range, and the fraction of the figure height the
// panel takes.
const (
	RatioMin    = 0.4
	RatioMax    = 1.6
	RatioHeight = 0.2
)

// Headroom is the factor between the tallest stacked bin and the top
// of the y axis.
const Headroom = 1.15

// ErrNoSeries is returned when asked to draw nothing.
var ErrNoSeries = errors.New("nothing to draw")

func newPlot(l Labels, o Options) *plot.Plot {
	p := plot.New()
	l.apply(p)
	p.Legend.Top = true
	if o.LogY {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	return p
}

// bars returns h as a step histogram.
func bars(h H1, fill color.Color, line color.Color, logY bool) *plotter.Histogram {
	bins := make([]plotter.HistogramBin, h.Len())
	for i := range bins {
		bins[i] = plotter.HistogramBin{Min: h.Edges[i], Max: h.Edges[i+1], Weight: h.W[i]}
	}
	hp := &plotter.Histogram{Bins: bins, FillColor: fill, LogY: logY}
	if h.Len() > 0 {
		hp.Width = h.Edges[1] - h.Edges[0]
	}
	hp.LineStyle = plotter.DefaultLineStyle
	if line != nil {
		hp.LineStyle.Color = line
	}
	return hp
}

// errPoints implements plotter.XYer and plotter.YErrorer.
type errPoints struct {
	plotter.XYs
	plotter.YErrors
}

// points returns markers at the bin centers of h with symmetric
// error bars. Empty bins are skipped on a log axis.
func points(h H1, c color.Color, logY bool) (*plotter.Scatter, *plotter.YErrorBars, error) {
	var pts errPoints
	for i := 0; i < h.Len(); i++ {
		if logY && h.W[i] <= 0 {
			continue
		}
		e := h.Err(i)
		low := e
		if logY && h.W[i]-low <= 0 {
			low = h.W[i] / 2
		}
		pts.XYs = append(pts.XYs, plotter.XY{X: h.Center(i), Y: h.W[i]})
		pts.YErrors = append(pts.YErrors, struct{ Low, High float64 }{low, e})
	}
	return asymPoints(pts, c)
}

func asymPoints(pts errPoints, c color.Color) (*plotter.Scatter, *plotter.YErrorBars, error) {
	if len(pts.XYs) == 0 {
		return nil, nil, nil
	}
	sc, err := plotter.NewScatter(pts.XYs)
	if err != nil {
		return nil, nil, err
	}
	eb, err := plotter.NewYErrorBars(pts)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		c = color.Black
	}
	sc.GlyphStyle.Color = c
	sc.GlyphStyle.Radius = vg.Points(2)
	eb.LineStyle.Color = c
	return sc, eb, nil
}

// xRange fixes the x axis of p to the edges of h.
func xRange(p *plot.Plot, h H1) {
	if len(h.Edges) > 1 {
		p.X.Min, p.X.Max = h.Edges[0], h.Edges[len(h.Edges)-1]
	}
}

// yFloor fixes the bottom of a logarithmic y axis below the smallest
// positive value of hs.
func yFloor(p *plot.Plot, hs ...H1) {
	m := math.Inf(1)
	for _, h := range hs {
		for _, w := range h.W {
			if w > 0 {
				m = math.Min(m, w)
			}
		}
	}
	if math.IsInf(m, 1) {
		m = 1
	}
	p.Y.Min = m / 2
	if p.Y.Max <= p.Y.Min {
		p.Y.Max = 10 * p.Y.Min
	}
}

// OverlayOrder returns the indexes of series sorted by descending
// maximum bin content. Ties keep their input order.
func OverlayOrder(series []Series) []int {
	return order(len(series), func(i, j int) bool {
		return series[i].H.Max() > series[j].H.Max()
	})
}

// StackOrder returns the indexes of series sorted by ascending
// integral, which is the bottom-to-top order of a stack.
func StackOrder(series []Series) []int {
	return order(len(series), func(i, j int) bool {
		return series[i].H.Integral() < series[j].H.Integral()
	})
}

// Overlay draws series on top of each other in the given order,
// each as an unfilled outline in its color with error bars.
func Overlay(series []Series, l Labels, o Options) (*Figure, error) {
	if len(series) == 0 {
		return nil, ErrNoSeries
	}
	p := newPlot(l, o)
	for _, s := range series {
		b := bars(s.H, nil, s.Color, o.LogY)
		_, eb, err := points(s.H, s.Color, o.LogY)
		if err != nil {
			return nil, err
		}
		p.Add(b)
		if eb != nil {
			eb.CapWidth = 0
			p.Add(eb)
		}
		p.Legend.Add(s.Label, b)
	}
	xRange(p, series[0].H)
	if o.LogY {
		hs := make([]H1, len(series))
		for i, s := range series {
			hs[i] = s.H
		}
		p.Y.Max = series[0].H.Max() * 2
		yFloor(p, hs...)
	}
	return single(p, o), nil
}

// StackMax returns the y-axis maximum of a stack of mc with the
// optional data histogram drawn over it.
func StackMax(mc []Series, data *Series) float64 {
	var sum H1
	for i, s := range mc {
		if i == 0 {
			sum = s.H.Clone()
			continue
		}
		if next, err := sum.Add(s.H); err == nil {
			sum = next
		}
	}
	m := sum.Max()
	if data != nil {
		m = math.Max(m, data.H.Max())
	}
	return Headroom * m
}

// stackPlot draws mc stacked bottom-to-top in the given order with
// data, if any, as points with error bars on top.
func stackPlot(mc []Series, data *Series, l Labels, o Options) (*plot.Plot, H1, error) {
	if len(mc) == 0 {
		return nil, H1{}, ErrNoSeries
	}
	p := newPlot(l, o)

	// Cumulative sums: layer k is mc[0]+...+mc[k].
	layers := make([]H1, len(mc))
	for i, s := range mc {
		if i == 0 {
			layers[i] = s.H.Clone()
			continue
		}
		sum, err := layers[i-1].Add(s.H)
		if err != nil {
			return nil, H1{}, err
		}
		layers[i] = sum
	}
	// Tallest layer first so lower layers paint over it.
	for i := len(layers) - 1; i >= 0; i-- {
		p.Add(bars(layers[i], mc[i].Color, mc[i].Color, o.LogY))
	}
	for i, s := range mc {
		// Legend thumbnails reuse a filled bar in the sample color.
		p.Legend.Add(s.Label, bars(layers[i], s.Color, s.Color, false))
	}
	if data != nil {
		sc, eb, err := points(data.H, data.Color, o.LogY)
		if err != nil {
			return nil, H1{}, err
		}
		if sc != nil {
			p.Add(sc, eb)
			p.Legend.Add(data.Label, sc)
		}
	}
	xRange(p, mc[0].H)
	p.Y.Max = StackMax(mc, data)
	if o.LogY {
		yFloor(p, layers[0])
	} else {
		p.Y.Min = 0
	}
	return p, layers[len(layers)-1], nil
}

// Stack draws mc as a stack in the given bottom-to-top order and
// data, if non-nil, over it.
func Stack(mc []Series, data *Series, l Labels, o Options) (*Figure, error) {
	p, _, err := stackPlot(mc, data, l, o)
	if err != nil {
		return nil, err
	}
	return single(p, o), nil
}

// ErrNoData is returned when a ratio panel has no data to compare.
var ErrNoData = errors.New("ratio panel needs a data histogram")

// StackRatio draws a stack with a data/MC ratio panel below it. The
// panels share the x axis; tick labels appear only on the ratio
// panel.
func StackRatio(mc []Series, data *Series, l Labels, o Options) (*Figure, error) {
	if data == nil {
		return nil, ErrNoData
	}
	top, sum, err := stackPlot(mc, data, Labels{Title: l.Title, Y: l.Y}, o)
	if err != nil {
		return nil, err
	}
	top.X.Tick.Marker = unlabeled{top.X.Tick.Marker}

	ratio, err := data.H.Divide(sum)
	if err != nil {
		return nil, err
	}
	bot := plot.New()
	bot.X.Label.Text = l.X
	bot.Y.Label.Text = "data/MC"
	sc, eb, err := points(ratio, color.Black, false)
	if err != nil {
		return nil, err
	}
	if sc != nil {
		bot.Add(sc, eb)
	}
	one := plotter.NewFunction(func(float64) float64 { return 1 })
	one.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
	bot.Add(one)
	xRange(bot, ratio)
	bot.Y.Min, bot.Y.Max = RatioMin, RatioMax

	w, h := o.size()
	return &Figure{Width: w, Height: h, panels: []panel{
		{top, 0, 1, RatioHeight, 1},
		{bot, 0, 1, 0, RatioHeight},
	}}, nil
}

// unlabeled keeps the ticks of a Ticker but drops their labels.
type unlabeled struct {
	plot.Ticker
}

func (t unlabeled) Ticks(min, max float64) []plot.Tick {
	ts := t.Ticker.Ticks(min, max)
	for i := range ts {
		ts[i].Label = ""
	}
	return ts
}

// order returns 0..n-1 stably sorted by less.
func order(n int, less func(i, j int) bool) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return less(idx[a], idx[b]) })
	return idx
}
