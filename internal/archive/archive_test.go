// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hbook/rootcnv"

	"github.com/aclements/rdfana/internal/sink"
)

func h1(name string) *hbook.H1D {
	h := hbook.NewH1D(4, 0, 4)
	h.Ann["name"] = name
	h.Fill(1.5, 2)
	return h
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	for _, codec := range []string{Plain, Zstd, LZ4} {
		t.Run(codec, func(t *testing.T) {
			store := sink.NewMemory()
			a := New(store, WithYODA(codec))
			a.AddH1(h1("hist_mt_wz"))
			h2 := hbook.NewH2D(2, 0, 2, 2, 0, 2)
			h2.Ann["name"] = "hist_mt_met_wz"
			a.AddH2(h2)
			a.AddH1(h1("hist_mt_wz"))
			assert.Equal(t, []string{"hist_mt_wz", "hist_mt_met_wz"}, a.Names())

			require.NoError(t, a.Close(ctx))
			require.NoError(t, a.Close(ctx), "second Close")

			b, err := store.Get(ctx, a.YODAKey())
			require.NoError(t, err)
			text, err := Decompress(b, codec)
			require.NoError(t, err)
			assert.Contains(t, string(text), "hist_mt_wz")
			assert.Contains(t, string(text), "hist_mt_met_wz")

			sums, err := store.Get(ctx, a.ManifestKey())
			require.NoError(t, err)
			lines := strings.Split(strings.TrimSpace(string(sums)), "\n")
			require.Len(t, lines, 2)
			want, err := h1("hist_mt_wz").MarshalYODA()
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("%016x hist_mt_wz", xxhash.Sum64(want)), lines[0])
		})
	}
}

func TestROOT(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := New(sink.NewFS(dir))
	a.AddH1(h1("hist_mt_wz_nl3"))
	require.NoError(t, a.Close(ctx))
	assert.Equal(t, "ntuples/output.root", a.ROOTKey())

	f, err := groot.Open(filepath.Join(dir, "ntuples", "output.root"))
	require.NoError(t, err)
	defer f.Close()
	obj, err := f.Get("hist_mt_wz_nl3")
	require.NoError(t, err)
	assert.Equal(t, "TH1D", obj.Class())

	_, err = os.Stat(filepath.Join(dir, "ntuples", "output.yoda"))
	assert.True(t, os.IsNotExist(err), "YODA written without a codec")
}

func TestBadCodec(t *testing.T) {
	a := New(sink.NewMemory(), WithYODA("bz2"))
	a.AddH1(h1("h"))
	assert.Error(t, a.Close(context.Background()))
}

// weighted returns a histogram whose bin 1 holds two fills, so its
// sum of squared weights differs from the squared sum.
func weighted(name string) *hbook.H1D {
	h := hbook.NewH1D(4, 0, 4)
	h.Ann["name"] = name
	h.Fill(1.5, 0.5)
	h.Fill(1.5, 2)
	h.Fill(3.5, 3)
	return h
}

// yodaH1 decodes the 1D histograms of a YODA text by name.
func yodaH1(t *testing.T, text []byte) map[string]*hbook.H1D {
	t.Helper()
	out := make(map[string]*hbook.H1D)
	for _, obj := range strings.Split(string(text), "BEGIN ")[1:] {
		if !strings.HasPrefix(obj, "YODA_HISTO1D") {
			continue
		}
		var h hbook.H1D
		require.NoError(t, h.UnmarshalYODA([]byte("BEGIN "+obj)))
		out[h.Name()] = &h
	}
	return out
}

func assertBins(t *testing.T, want, got *hbook.H1D) {
	t.Helper()
	require.Len(t, got.Binning.Bins, len(want.Binning.Bins))
	for i := range want.Binning.Bins {
		w, g := &want.Binning.Bins[i], &got.Binning.Bins[i]
		assert.InDelta(t, w.SumW(), g.SumW(), 1e-9, "bin %d sumw", i)
		assert.InDelta(t, w.SumW2(), g.SumW2(), 1e-9, "bin %d sumw2", i)
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	want := weighted("hist_mt_wz")
	require.Equal(t, 2.5, want.Binning.Bins[1].SumW())
	require.Equal(t, 4.25, want.Binning.Bins[1].SumW2())

	for _, codec := range []string{Plain, Zstd, LZ4} {
		t.Run(codec, func(t *testing.T) {
			dir := t.TempDir()
			store := sink.NewFS(dir)
			a := New(store, WithYODA(codec))
			a.AddH1(weighted("hist_mt_wz"))
			a.AddH1(h1("hist_mt_zz"))
			require.NoError(t, a.Close(ctx))

			b, err := store.Get(ctx, a.YODAKey())
			require.NoError(t, err)
			text, err := Decompress(b, codec)
			require.NoError(t, err)
			hs := yodaH1(t, text)
			require.Contains(t, hs, "hist_mt_wz")
			assertBins(t, want, hs["hist_mt_wz"])
			assertBins(t, h1("hist_mt_zz"), hs["hist_mt_zz"])

			f, err := groot.Open(filepath.Join(dir, filepath.FromSlash(a.ROOTKey())))
			require.NoError(t, err)
			defer f.Close()
			obj, err := f.Get("hist_mt_wz")
			require.NoError(t, err)
			got := rootcnv.H1D(obj.(rhist.H1))
			assertBins(t, want, got)
			assert.Equal(t, "hist_mt_wz", got.Name())
		})
	}
}
