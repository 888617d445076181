// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ana

import (
	"bytes"
	"context"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/hbook/rootcnv"

	"github.com/aclements/rdfana/internal/archive"
	"github.com/aclements/rdfana/internal/sink"
)

func TestDrawStack(t *testing.T) {
	ctx := context.Background()
	wz1, wz2, data := wzSamples()
	pc, err := NewSampleCollection(nil).Add(wz1, wz2, data).Book1D(mtAxis(), nl3(t))
	require.NoError(t, err)
	out := sink.NewMemory()
	pc.SetOutput(out).SetFileExtension("svg").SetCombineStyle(Stack)
	require.NoError(t, pc.Draw(ctx))
	pc.SetBottomStyle(Ratio).SetLogY(true)
	require.NoError(t, pc.Draw(ctx))
	assert.Equal(t, []string{
		"plots/wcand_mt_stack_nl3.svg",
		"plots/wcand_mt_stack_ratio_nl3.svg",
	}, out.Keys())
}

func TestDrawExtraData(t *testing.T) {
	ctx := context.Background()
	wz1, _, data := wzSamples()
	data2 := NewSample("wz_data2", source("data2", dataEvents), color.Gray{Y: 0x80}, AsData())
	pc, err := NewSampleCollection(nil).Add(wz1, data, data2).Book1D(mtAxis(), nil)
	require.NoError(t, err)
	var log bytes.Buffer
	pc.SetOutput(sink.NewMemory()).SetFileExtension("svg").SetLogger(slog.New(slog.NewTextHandler(&log, nil)))

	// Overlays draw every data entry.
	require.NoError(t, pc.Draw(ctx))
	assert.NotContains(t, log.String(), "extra data entry")

	pc.SetCombineStyle(Stack)
	require.NoError(t, pc.Draw(ctx))
	assert.Contains(t, log.String(), "extra data entry not drawn")
	assert.Contains(t, log.String(), "entry=wz_data2")
}

func TestDrawUnsupported(t *testing.T) {
	ctx := context.Background()
	wz1, _, data := wzSamples()
	c := NewSampleCollection(nil).Add(wz1, data)
	out := sink.NewMemory()

	pc, err := c.Book1D(mtAxis(), nl3(t))
	require.NoError(t, err)
	pc.SetOutput(out).SetBottomStyle(Ratio)
	assert.ErrorIs(t, pc.Draw(ctx), ErrUnsupportedBottom)
	pc.SetCombineStyle(Stack).SetBottomStyle(UpperCutSignificance)
	assert.ErrorIs(t, pc.Draw(ctx), ErrUnsupportedBottom)

	eff, err := c.Book1DEfficiency(mtAxis(), "lep_n==3", "", nil)
	require.NoError(t, err)
	eff.SetOutput(out)
	assert.ErrorIs(t, eff.Draw(ctx), ErrWrongKind, "overlay")
	eff.SetCombineStyle(Stack)
	assert.ErrorIs(t, eff.Draw(ctx), ErrWrongKind, "stack")

	h2, err := c.Book2D(mtAxis(), NewAxis("lep_n", "", 5, 0, 5, ""), nil)
	require.NoError(t, err)
	h2.SetOutput(out)
	assert.ErrorIs(t, h2.Draw(ctx), ErrWrongKind)
	_, err = h2.Histogram(ctx, 0, 0)
	assert.ErrorIs(t, err, ErrWrongKind)
	_, err = pc.Histogram2D(ctx, 0, 0)
	assert.ErrorIs(t, err, ErrWrongKind)

	assert.Empty(t, out.Keys())
	assert.Equal(t, 0, wz1.Frame().Loops())
}

func TestDrawEach(t *testing.T) {
	ctx := context.Background()
	wz1, _, data := wzSamples()
	c := NewSampleCollection(nil).Add(wz1, data)
	out := sink.NewMemory()

	pc, err := c.Book1D(mtAxis(), nil)
	require.NoError(t, err)
	pc.SetOutput(out)
	require.NoError(t, pc.DrawEach(ctx))

	eff, err := c.Book1DEfficiency(mtAxis(), "wcand_mt > 2000", "", nl3(t))
	require.NoError(t, err)
	eff.SetOutput(out)
	require.NoError(t, eff.DrawEach(ctx))

	nl := NewAxis("lep_n", "", 5, 0, 5, "")
	h2, err := c.Book2D(mtAxis(), nl, nl3(t))
	require.NoError(t, err)
	h2.SetOutput(out)
	require.NoError(t, h2.DrawEach(ctx))

	e2, err := c.Book2DEfficiency(mtAxis(), nl, "wcand_mt > 2000", "", nil)
	require.NoError(t, err)
	e2.SetOutput(out)
	require.NoError(t, e2.DrawEach(ctx))

	assert.Equal(t, []string{
		"plots/eff_wcand_mt_lep_n_wz1.png",
		"plots/eff_wcand_mt_lep_n_wz_data.png",
		"plots/eff_wcand_mt_wz1_nl3.png",
		"plots/eff_wcand_mt_wz_data_nl3.png",
		"plots/wcand_mt_lep_n_wz1_nl3.png",
		"plots/wcand_mt_lep_n_wz_data_nl3.png",
		"plots/wcand_mt_wz1.png",
		"plots/wcand_mt_wz_data.png",
	}, out.Keys())
	assert.Equal(t, 1, wz1.Frame().Loops())
}

func TestDrawArchive(t *testing.T) {
	ctx := context.Background()
	wz1, _, data := wzSamples()
	c := NewSampleCollection(nil).Add(wz1, data)
	out := sink.NewMemory()

	// Without a shared archive each draw writes its own.
	pc, err := c.Book1D(mtAxis(), nl3(t))
	require.NoError(t, err)
	pc.SetOutput(out).SetSaveROOT(true)
	require.NoError(t, pc.Draw(ctx))
	assert.Contains(t, out.Keys(), "ntuples/output.root")

	arch := archive.New(out, archive.WithYODA(archive.LZ4))
	eff, err := c.Book1DEfficiency(mtAxis(), "wcand_mt > 2000", "", nl3(t))
	require.NoError(t, err)
	eff.SetOutput(out).SetSaveROOT(true).SetArchive(arch)
	require.NoError(t, eff.DrawEach(ctx))
	assert.Equal(t, []string{
		"hist_wcand_mt_wz1_nl3",
		"hist_wcand_mt_wz1_nl3_den",
		"hist_wcand_mt_wz_data_nl3",
		"hist_wcand_mt_wz_data_nl3_den",
	}, arch.Names())
	assert.NotContains(t, out.Keys(), "ntuples/output.yoda.lz4")
	require.NoError(t, arch.Close(ctx))
	assert.Contains(t, out.Keys(), "ntuples/output.yoda.lz4")

	// Archived bins keep their weights and squared weights.
	b, err := out.Get(ctx, arch.ROOTKey())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "output.root")
	require.NoError(t, os.WriteFile(path, b, 0o644))
	f, err := groot.Open(path)
	require.NoError(t, err)
	defer f.Close()
	obj, err := f.Get("hist_wcand_mt_wz1_nl3_den")
	require.NoError(t, err)
	den := rootcnv.H1D(obj.(rhist.H1))
	require.Len(t, den.Binning.Bins, 60)
	for bin, w := range map[int]float64{0: 1, 1: 2, 30: 0, 59: 4} {
		assert.InDelta(t, w, den.Binning.Bins[bin].SumW(), 1e-9, "bin %d sumw", bin)
		assert.InDelta(t, w*w, den.Binning.Bins[bin].SumW2(), 1e-9, "bin %d sumw2", bin)
	}
}
