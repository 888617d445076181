// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
)

// paletteSize is the number of colors in heat-map palettes.
const paletteSize = 255

// colorBarWidth is the fraction of the figure width given to the
// color bar.
const colorBarWidth = 0.1

// HeatMap draws h as a color map with a color bar on the right.
func HeatMap(h H2, l Labels, o Options) (*Figure, error) {
	lo, hi := h.Min(), h.Max()
	if !(hi > lo) {
		hi = lo + 1
	}
	cm := moreland.ExtendedBlackBody()
	cm.SetMin(lo)
	cm.SetMax(hi)

	p := newPlot(l, Options{})
	hm := plotter.NewHeatMap(h, cm.Palette(paletteSize))
	hm.Min, hm.Max = lo, hi
	hm.NaN = color.Transparent
	p.Add(hm)
	p.X.Min, p.X.Max = h.XEdges[0], h.XEdges[len(h.XEdges)-1]
	p.Y.Min, p.Y.Max = h.YEdges[0], h.YEdges[len(h.YEdges)-1]

	bar := plot.New()
	cb := &plotter.ColorBar{ColorMap: cm, Vertical: true}
	bar.Add(cb)
	bar.HideX()
	bar.Y.Padding = 0

	w, ht := o.size()
	return &Figure{Width: w, Height: ht, panels: []panel{
		{p, 0, 1 - colorBarWidth, 0, 1},
		{bar, 1 - colorBarWidth, 1, 0, 1},
	}}, nil
}
