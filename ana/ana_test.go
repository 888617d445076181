// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ana

import (
	"context"
	"image/color"
	"testing"

	"github.com/aclements/go-gg/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aclements/rdfana/frame"
	"github.com/aclements/rdfana/internal/sink"
)

type events struct {
	mt     []float64
	nl     []int32
	weight []float64
}

var (
	wz1Events = events{
		mt:     []float64{1000, 3000, 50000, 119000},
		nl:     []int32{3, 3, 2, 3},
		weight: []float64{1, 2, 3, 4},
	}
	wz2Events = events{
		mt:     []float64{2500, 60000},
		nl:     []int32{3, 3},
		weight: []float64{0.5, 1.5},
	}
	dataEvents = events{
		mt:     []float64{1000, 70000, 80000},
		nl:     []int32{3, 3, 2},
		weight: []float64{1, 1, 1},
	}
)

func source(name string, ev events) frame.Source {
	tab := new(table.Builder).
		Add("wcand_mt", ev.mt).
		Add("lep_n", ev.nl).
		Add("mcWeight", ev.weight).
		Done()
	return &frame.TableSource{Name: name, Table: tab}
}

// wzSamples returns the two simulated samples and the data sample,
// with the simulated ones weighted by mcWeight.
func wzSamples() (wz1, wz2, data *Sample) {
	wz1 = NewSample("wz1", source("wz1", wz1Events), color.RGBA{R: 0xff, A: 0xff}, WithDescription("WZ 1")).AddFlag("mc")
	wz2 = NewSample("wz2", source("wz2", wz2Events), color.RGBA{B: 0xff, A: 0xff}, WithDescription("WZ 2")).AddFlag("mc")
	data = NewSample("wz_data", source("data", dataEvents), color.Black, WithDescription("Data"), AsData())
	wz1.SetWeightBranches("mcWeight", "")
	wz2.SetWeightBranches("mcWeight", "")
	return
}

func mtAxis() Axis {
	return NewAxis("wcand_mt", "m_{T}^{W}", 60, 0, 120000, "MeV")
}

func nl3(t *testing.T) *Regions {
	t.Helper()
	r := NewRegions(nil)
	require.NoError(t, r.Add("nl3", "lep_n==3", "three leptons"))
	return r
}

// bins returns the nonzero bins of h by index.
func bins(t *testing.T, pc *PlotCollection, i, r int) map[int]float64 {
	t.Helper()
	h, err := pc.Histogram(context.Background(), i, r)
	require.NoError(t, err)
	m := make(map[int]float64)
	for b, w := range h.W {
		if w != 0 {
			m[b] = w
		}
	}
	return m
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	wz1, wz2, data := wzSamples()
	c := NewSampleCollection(nil).Add(wz1, wz2, data)
	pc, err := c.Book1D(mtAxis(), nl3(t))
	require.NoError(t, err)

	ne, nr := pc.Len()
	assert.Equal(t, 3, ne)
	assert.Equal(t, 1, nr)

	out := sink.NewMemory()
	pc.SetLuminosity(0.5).SetOutput(out)
	require.NoError(t, pc.Draw(ctx))
	assert.Contains(t, out.Keys(), "plots/wcand_mt_overlay_nl3.png")
	assert.Equal(t, 1, wz1.Frame().Loops())
	assert.Equal(t, 1, data.Frame().Loops())

	assert.Equal(t, map[int]float64{0: 0.5, 1: 1, 59: 2}, bins(t, pc, 0, 0))
	assert.Equal(t, map[int]float64{1: 0.25, 30: 0.75}, bins(t, pc, 1, 0))
	assert.Equal(t, map[int]float64{0: 1, 35: 1}, bins(t, pc, 2, 0))

	// Rescaling starts from the unscaled histograms.
	pc.SetLuminosity(0.5)
	assert.Equal(t, map[int]float64{0: 0.5, 1: 1, 59: 2}, bins(t, pc, 0, 0))
	pc.SetLuminosity(2)
	assert.Equal(t, map[int]float64{0: 2, 1: 4, 59: 8}, bins(t, pc, 0, 0))
	assert.Equal(t, map[int]float64{0: 1, 35: 1}, bins(t, pc, 2, 0))
	assert.Equal(t, 1, wz1.Frame().Loops())
}

func TestDataNeverScaled(t *testing.T) {
	_, _, data := wzSamples()
	pc, err := NewSampleCollection(nil).Add(data).Book1D(mtAxis(), nil)
	require.NoError(t, err)
	for _, l := range []float64{0, 0.5, 3, 1e6} {
		pc.SetLuminosity(l)
		assert.Equal(t, map[int]float64{0: 1, 35: 1, 40: 1}, bins(t, pc, 0, 0), "luminosity %v", l)
	}
}

func TestEfficiencyNeverScaled(t *testing.T) {
	ctx := context.Background()
	wz1, _, _ := wzSamples()
	pc, err := NewSampleCollection(nil).Add(wz1).Book1DEfficiency(mtAxis(), "wcand_mt > 2000", "m_{T} > 2 GeV", nil)
	require.NoError(t, err)
	assert.True(t, pc.IsEfficiency())
	assert.Equal(t, "Efficiency m_{T} > 2 GeV", pc.Title(0, 0).Y)

	for _, l := range []float64{0.5, 0.5, 7} {
		pc.SetLuminosity(l)
		assert.Equal(t, map[int]float64{1: 2, 25: 3, 59: 4}, bins(t, pc, 0, 0))
		den, err := pc.Denominator(ctx, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 1.0, den.W[0])
	}
	effs, err := pc.Efficiency(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, effs[0].Eff)
	assert.Equal(t, 1.0, effs[1].Eff)
}

func TestNaming(t *testing.T) {
	wz1, _, _ := wzSamples()
	c := NewSampleCollection(nil).Add(wz1)

	pc, err := c.Book1D(mtAxis(), nl3(t))
	require.NoError(t, err)
	assert.Equal(t, "hist_wcand_mt_wz1_nl3", pc.Name(0, 0))
	assert.Equal(t, Title{
		Main: "m_{T}^{W}, three leptons",
		X:    "m_{T}^{W} [MeV]",
		Y:    "Events/2000 MeV",
	}, pc.Title(0, 0))

	pc, err = c.Book1D(mtAxis(), nil)
	require.NoError(t, err)
	assert.Equal(t, "hist_wcand_mt_wz1", pc.Name(0, 0))

	nl := NewAxis("lep_n", "", 5, 0, 5, "")
	pc, err = c.Book2D(mtAxis(), nl, nl3(t))
	require.NoError(t, err)
	assert.Equal(t, "hist_wcand_mt_lep_n_wz1_nl3", pc.Name(0, 0))
	assert.Equal(t, "lep_n vs. m_{T}^{W}, three leptons", pc.Title(0, 0).Main)
	assert.Equal(t, "lep_n", pc.Title(0, 0).Y)
}

func TestBookingDeterministic(t *testing.T) {
	wz1, _, _ := wzSamples()
	c := NewSampleCollection(nil).Add(wz1)
	a, err := c.Book1D(mtAxis(), nl3(t))
	require.NoError(t, err)
	b, err := c.Book1D(mtAxis(), nl3(t))
	require.NoError(t, err)
	assert.Equal(t, a.Name(0, 0), b.Name(0, 0))
	assert.Equal(t, bins(t, a, 0, 0), bins(t, b, 0, 0))
	assert.Equal(t, 1, wz1.Frame().Loops())
}

func TestNoOpFilter(t *testing.T) {
	plain, _, _ := wzSamples()
	filtered, _, _ := wzSamples()
	filtered.Filter("1", "everything")
	assert.Equal(t, []string{"everything"}, filtered.Cuts())
	assert.Empty(t, plain.Cuts())

	a, err := NewSampleCollection(nil).Add(plain).Book1D(mtAxis(), nil)
	require.NoError(t, err)
	b, err := NewSampleCollection(nil).Add(filtered).Book1D(mtAxis(), nil)
	require.NoError(t, err)
	assert.Equal(t, bins(t, a, 0, 0), bins(t, b, 0, 0))
	assert.Equal(t, "m_{T}^{W} everything", b.Title(0, 0).Main)
}

func TestScaleWeight(t *testing.T) {
	ctx := context.Background()
	wz1, _, data := wzSamples()
	wz1.SetCrossSection(4.43).SetLuminosity(36.5)
	got, err := wz1.ScaleWeight(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 4.43*36.5*1000/10, got, 1e-9)

	w, err := data.ScaleWeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, w)

	zero := NewSample("zero", source("zero", events{
		mt: []float64{1}, nl: []int32{3}, weight: []float64{0},
	}), color.Black).SetWeightBranches("mcWeight", "")
	_, err = zero.ScaleWeight(ctx)
	assert.ErrorIs(t, err, ErrZeroYield)
}

func TestCollectionFlags(t *testing.T) {
	ctx := context.Background()
	wz1, wz2, data := wzSamples()
	c := NewSampleCollection(nil).Add(wz1, wz2, data)
	c.Filter("wcand_mt > 2000", "high mt", "mc")
	c.SetLuminosity(12)
	assert.Equal(t, []string{"high mt"}, wz1.Cuts())
	assert.Equal(t, []string{"high mt"}, wz2.Cuts())
	assert.Empty(t, data.Cuts())
	assert.Equal(t, 12.0, wz1.Luminosity())
	assert.Equal(t, 1.0, data.Luminosity())

	c.Define("mt_gev", "wcand_mt / 1000")
	pc, err := c.Book1D(NewAxis("mt_gev", "", 12, 0, 120, "GeV"), nil)
	require.NoError(t, err)
	assert.Equal(t, map[int]float64{0: 2, 5: 3, 11: 4}, bins(t, pc, 0, 0))
	assert.Equal(t, "Events/10 GeV", pc.Title(0, 0).Y)

	ys, err := wz1.Yields(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float64{9}, ys)
}

func TestComposite(t *testing.T) {
	wz1, wz2, data := wzSamples()
	wz := NewComposite("wz", color.RGBA{G: 0xff, A: 0xff}, []*Sample{wz1, wz2}, WithDescription("WZ")).AddFlag("signal")
	assert.True(t, wz1.HasFlag("signal"))
	assert.True(t, wz2.HasFlag("mc"))
	assert.False(t, data.HasFlag("signal"))
	assert.Len(t, wz.Leaves(), 2)

	c := NewSampleCollection(nil).Add(wz, data)
	assert.Len(t, c.Entries(), 2)
	assert.Len(t, c.Samples(), 3)

	c.Filter("lep_n==3", "3l", "signal")
	assert.Equal(t, "3l", wz.SelectionString())
	assert.Empty(t, data.SelectionString())

	pc, err := c.Book1D(mtAxis(), nil)
	require.NoError(t, err)
	assert.Equal(t, "hist_wcand_mt_wz", pc.Name(0, 0))
	assert.Equal(t, map[int]float64{0: 1, 1: 2.5, 30: 1.5, 59: 4}, bins(t, pc, 0, 0))
	pc.SetLuminosity(2)
	assert.Equal(t, map[int]float64{0: 2, 1: 5, 30: 3, 59: 8}, bins(t, pc, 0, 0))

	dc := NewComposite("all_data", color.Black, []*Sample{
		NewSample("p1", source("p1", dataEvents), color.Black),
		NewSample("p2", source("p2", dataEvents), color.Black),
	}, AsData())
	assert.True(t, dc.Leaves()[0].IsData())
	pc, err = NewSampleCollection(nil).Add(dc).Book1D(mtAxis(), nil)
	require.NoError(t, err)
	pc.SetLuminosity(5)
	assert.Equal(t, map[int]float64{0: 2, 35: 2, 40: 2}, bins(t, pc, 0, 0))
}

func TestSharedFrame(t *testing.T) {
	wz1, _, _ := wzSamples()
	both := NewComposite("wz", color.RGBA{G: 0xff, A: 0xff}, []*Sample{wz1})
	c := NewSampleCollection(nil).Add(wz1, both)
	assert.Len(t, c.Samples(), 2)
	assert.Len(t, c.frames(), 1)

	pc, err := c.Book1D(mtAxis(), nil)
	require.NoError(t, err)
	assert.Equal(t, bins(t, pc, 0, 0), bins(t, pc, 1, 0))
	assert.Equal(t, 1, wz1.Frame().Loops())
}

func TestBookErrors(t *testing.T) {
	wz1, _, _ := wzSamples()
	c := NewSampleCollection(nil).Add(wz1)
	_, err := c.Book1D(NewAxis("wcand_mt", "", 0, 0, 1, ""), nil)
	assert.Error(t, err)
	_, err = c.Book1DEfficiency(mtAxis(), "", "", nil)
	assert.Error(t, err)

	pc, err := NewSampleCollection(nil).Book1D(mtAxis(), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, pc.Draw(context.Background()), ErrNotBooked)
	_, err = pc.Histogram(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrNotBooked)
}
