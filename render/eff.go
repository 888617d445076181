// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"image/color"
	"math"

	"github.com/aclements/go-moremath/mathx"
	"gonum.org/v1/plot/plotter"
)

// OneSigma is the confidence level of a ±1σ interval.
const OneSigma = 0.682689492137

// ClopperPearson returns the central Clopper-Pearson interval at
// confidence level cl for k successes out of n trials. Weighted
// (non-integer) counts are accepted; k is clamped to [0, n].
func ClopperPearson(k, n, cl float64) (lo, hi float64) {
	if n <= 0 {
		return 0, 1
	}
	k = math.Max(0, math.Min(k, n))
	alpha := (1 - cl) / 2
	lo, hi = 0, 1
	if k > 0 {
		// Solve I_p(k, n-k+1) = alpha.
		lo = invBetaInc(alpha, k, n-k+1)
	}
	if k < n {
		// Solve I_p(k+1, n-k) = 1-alpha.
		hi = invBetaInc(1-alpha, k+1, n-k)
	}
	return lo, hi
}

// invBetaInc returns x such that the regularized incomplete beta
// function I_x(a, b) equals y, by bisection.
func invBetaInc(y, a, b float64) float64 {
	lo, hi := 0.0, 1.0
	for i := 0; i < 100 && hi-lo > 1e-12; i++ {
		mid := (lo + hi) / 2
		if mathx.BetaInc(mid, a, b) < y {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// EffPoint is one efficiency measurement with its asymmetric
// interval.
type EffPoint struct {
	X, XLow, XHigh float64
	Eff, Low, High float64
}

// Efficiencies returns the per-bin efficiency num/den with
// Clopper-Pearson intervals at OneSigma. Bins with an empty
// denominator are omitted.
func Efficiencies(num, den H1) ([]EffPoint, error) {
	if !sameEdges(num.Edges, den.Edges) {
		return nil, ErrBinning
	}
	var pts []EffPoint
	for i := 0; i < den.Len(); i++ {
		n, k := den.W[i], num.W[i]
		if n <= 0 {
			continue
		}
		eff := math.Max(0, math.Min(k/n, 1))
		lo, hi := ClopperPearson(k, n, OneSigma)
		pts = append(pts, EffPoint{
			X: num.Center(i), XLow: num.Edges[i], XHigh: num.Edges[i+1],
			Eff: eff, Low: eff - lo, High: hi - eff,
		})
	}
	return pts, nil
}

// Efficiency draws the efficiency num/den as points with asymmetric
// error bars.
func Efficiency(num, den H1, c color.Color, l Labels, o Options) (*Figure, error) {
	effs, err := Efficiencies(num, den)
	if err != nil {
		return nil, err
	}
	p := newPlot(l, Options{Width: o.Width, Height: o.Height})
	var pts errPoints
	for _, e := range effs {
		pts.XYs = append(pts.XYs, plotter.XY{X: e.X, Y: e.Eff})
		pts.YErrors = append(pts.YErrors, struct{ Low, High float64 }{e.Low, e.High})
	}
	sc, eb, err := asymPoints(pts, c)
	if err != nil {
		return nil, err
	}
	if sc != nil {
		p.Add(sc, eb)
	}
	xRange(p, den)
	p.Y.Min, p.Y.Max = 0, 1.05
	return single(p, o), nil
}
