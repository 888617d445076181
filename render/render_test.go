// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"bytes"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/colornames"
)

func h1(w ...float64) H1 {
	h := H1{Edges: make([]float64, len(w)+1), W: w, W2: make([]float64, len(w))}
	for i := range h.Edges {
		h.Edges[i] = float64(i)
	}
	copy(h.W2, w)
	return h
}

func TestOrders(t *testing.T) {
	stack := []Series{{H: h1(4, 6)}, {H: h1(25, 25)}, {H: h1(2, 3)}}
	assert.Equal(t, []int{2, 0, 1}, StackOrder(stack))

	overlay := []Series{{H: h1(1, 3)}, {H: h1(9, 0)}, {H: h1(1)}}
	overlay[2].H = h1(0, 1)
	assert.Equal(t, []int{1, 0, 2}, OverlayOrder(overlay))
}

func TestArithmetic(t *testing.T) {
	a, b := h1(1, 2, 0), h1(2, 0, 4)

	s, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 2, 4}, s.W)
	assert.Equal(t, []float64{1, 2, 0}, a.W, "Add must not modify its receiver")

	r, err := a.Divide(b)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0, 0}, r.W)
	assert.Equal(t, 0.0, r.Err(1), "zero denominator has zero error")

	sc := a.Scaled(0.5)
	assert.Equal(t, []float64{0.5, 1, 0}, sc.W)
	assert.Equal(t, []float64{0.25, 0.5, 0}, sc.W2)

	_, err = a.Add(h1(1))
	assert.ErrorIs(t, err, ErrBinning)

	assert.Equal(t, 3.0, a.Integral())
	assert.Equal(t, 2.0, a.Max())
}

func TestToH1D(t *testing.T) {
	h := H1{Edges: []float64{0, 1, 2}, W: []float64{4, 2}, W2: []float64{4, 2}}
	out := h.ToH1D("hist_x", "x")
	assert.Equal(t, "hist_x", out.Name())
	require.Len(t, out.Binning.Bins, 2)
	for i := range h.W {
		b := &out.Binning.Bins[i]
		assert.Equal(t, h.W[i], b.SumW(), "bin %d", i)
		assert.Equal(t, h.W2[i], b.SumW2(), "bin %d", i)
	}
	assert.Equal(t, 6.0, out.SumW())
	assert.Equal(t, 6.0, out.SumW2())
	assert.Equal(t, int64(6), out.Entries(), "effective entries")

	back := FromH1D(out)
	assert.Equal(t, h.W, back.W)
	assert.Equal(t, h.W2, back.W2)
}

func TestToH2D(t *testing.T) {
	h := H2{
		XEdges: []float64{0, 1, 2},
		YEdges: []float64{0, 10},
		W:      []float64{3, 0.5},
		W2:     []float64{5, 0.25},
	}
	out := h.ToH2D("hist_xy", "")
	require.Len(t, out.Binning.Bins, 2)
	for i := range h.W {
		b := &out.Binning.Bins[i]
		assert.Equal(t, h.W[i], b.SumW(), "bin %d", i)
		assert.Equal(t, h.W2[i], b.SumW2(), "bin %d", i)
	}

	back := FromH2D(out, h.XEdges, h.YEdges)
	assert.Equal(t, h.W, back.W)
	assert.Equal(t, h.W2, back.W2)

	sc := h.Scaled(2)
	assert.Equal(t, []float64{20, 1}, sc.W2)
}

func TestStackMax(t *testing.T) {
	mc := []Series{{H: h1(1, 5)}, {H: h1(2, 3)}}
	assert.InDelta(t, 1.15*8, StackMax(mc, nil), 1e-12)
	data := &Series{H: h1(10, 1)}
	assert.InDelta(t, 1.15*10, StackMax(mc, data), 1e-12)
}

func TestClopperPearson(t *testing.T) {
	alpha := (1 - OneSigma) / 2
	lo, hi := ClopperPearson(0, 10, OneSigma)
	assert.Equal(t, 0.0, lo)
	assert.InDelta(t, 1-math.Pow(alpha, 0.1), hi, 1e-6)

	lo, hi = ClopperPearson(10, 10, OneSigma)
	assert.InDelta(t, math.Pow(alpha, 0.1), lo, 1e-6)
	assert.Equal(t, 1.0, hi)

	lo, hi = ClopperPearson(5, 10, OneSigma)
	assert.InDelta(t, 1.0, lo+hi, 1e-6)
	assert.Less(t, lo, 0.5)
	assert.Greater(t, hi, 0.5)
}

func TestEfficiencies(t *testing.T) {
	pts, err := Efficiencies(h1(1, 0, 3), h1(2, 0, 4))
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.Equal(t, 0.5, pts[0].Eff)
	assert.Equal(t, 0.75, pts[1].Eff)
	assert.Equal(t, 2.5, pts[1].X)
	for _, p := range pts {
		assert.Greater(t, p.Low, 0.0)
		assert.Greater(t, p.High, 0.0)
	}
}

func TestEncode(t *testing.T) {
	mc := []Series{
		{H: h1(1, 5, 2), Label: "wz", Color: colornames.Orange},
		{H: h1(2, 3, 1), Label: "zz", Color: colornames.Steelblue},
	}
	data := &Series{H: h1(3, 7, 2), Label: "data", Color: color.Black}
	l := Labels{Title: "m_T", X: "m_T [GeV]", Y: "Events/bin"}

	for name, build := range map[string]func() (*Figure, error){
		"overlay": func() (*Figure, error) { return Overlay(mc, l, Options{}) },
		"stack":   func() (*Figure, error) { return Stack(mc, data, l, Options{LogY: true}) },
		"ratio":   func() (*Figure, error) { return StackRatio(mc, data, l, Options{}) },
		"eff":     func() (*Figure, error) { return Efficiency(mc[0].H, data.H, color.Black, l, Options{}) },
		"heat": func() (*Figure, error) {
			return HeatMap(H2{XEdges: []float64{0, 1, 2}, YEdges: []float64{0, 1}, W: []float64{1, 2}}, l, Options{})
		},
	} {
		f, err := build()
		require.NoError(t, err, name)
		for _, format := range []string{"png", "svg"} {
			var buf bytes.Buffer
			require.NoError(t, f.Encode(&buf, format), "%s.%s", name, format)
			assert.NotZero(t, buf.Len(), "%s.%s", name, format)
		}
	}

	_, err := StackRatio(mc, nil, l, Options{})
	assert.ErrorIs(t, err, ErrNoData)
	_, err = Overlay(nil, l, Options{})
	assert.ErrorIs(t, err, ErrNoSeries)
	f, _ := Overlay(mc, l, Options{})
	assert.Error(t, f.Encode(&bytes.Buffer{}, "bmp"))
}

func TestRatioLayout(t *testing.T) {
	mc := []Series{{H: h1(1, 1)}}
	f, err := StackRatio(mc, &Series{H: h1(1, 2)}, Labels{X: "x"}, Options{})
	require.NoError(t, err)
	ps := f.Plots()
	require.Len(t, ps, 2)
	assert.Equal(t, 0.2, f.panels[1].y1, "ratio panel height")
	assert.Equal(t, 0.2, f.panels[0].y0)
	assert.Equal(t, RatioMin, ps[1].Y.Min)
	assert.Equal(t, RatioMax, ps[1].Y.Max)
	assert.Equal(t, "", ps[0].X.Label.Text)
	assert.Equal(t, "x", ps[1].X.Label.Text)
	for _, tick := range ps[0].X.Tick.Marker.Ticks(0, 2) {
		assert.Empty(t, tick.Label)
	}
}
