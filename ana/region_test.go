// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ana

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionCuts(t *testing.T) {
	r := NewRegions(nil)
	require.NoError(t, r.Add("nl3", "lep_n==3", ""))
	require.NoError(t, r.Add("nl2", "lep_n==2", "two leptons"))
	require.NoError(t, r.SetFlagCut("nl3", "pseudodata", "lep_n==3&&extra"))
	require.NoError(t, r.SetFlagCut("nl3", "mc", "lep_n==3&&truth"))

	pseudo := NewSample("pd", source("pd", dataEvents), color.Black).AddFlag("pseudodata")
	mc := NewSample("mc", source("mc", dataEvents), color.Black).AddFlag("mc")
	both := NewSample("both", source("both", dataEvents), color.Black).AddFlag("mc").AddFlag("pseudodata")
	plain := NewSample("plain", source("plain", dataEvents), color.Black)

	i := r.Index("nl3")
	assert.Equal(t, "lep_n==3&&extra", r.Cut(i, pseudo))
	assert.Equal(t, "lep_n==3&&truth", r.Cut(i, mc))
	// The first override in insertion order wins.
	assert.Equal(t, "lep_n==3&&extra", r.Cut(i, both))
	assert.Equal(t, "lep_n==3", r.Cut(i, plain))
	assert.Equal(t, "lep_n==2", r.Cut(r.Index("nl2"), pseudo))

	// Replacing an override keeps its position.
	require.NoError(t, r.SetFlagCut("nl3", "pseudodata", "lep_n==3&&other"))
	assert.Equal(t, "lep_n==3&&other", r.Cut(i, both))

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, "lep_n==3", r.Description(i))
	assert.Equal(t, "two leptons", r.Description(1))
	assert.Equal(t, -1, r.Index("nl4"))
}

func TestRegionErrors(t *testing.T) {
	r := NewRegions(nil)
	require.NoError(t, r.Add("nl3", "lep_n==3", ""))
	assert.ErrorIs(t, r.Add("nl3", "lep_n>=3", ""), ErrDuplicateRegion)
	assert.ErrorIs(t, r.SetFlagCut("nl4", "mc", "x"), ErrUnknownRegion)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, "lep_n==3", r.Cut(0, NewSample("s", source("s", dataEvents), color.Black)))

	var none *Regions
	assert.Equal(t, 0, none.Len())
	assert.Equal(t, -1, none.Index("nl3"))
}

func TestRegionOverrideBooking(t *testing.T) {
	wz1, wz2, _ := wzSamples()
	wz2.AddFlag("pseudodata")
	r := nl3(t)
	require.NoError(t, r.SetFlagCut("nl3", "pseudodata", "lep_n==3 && wcand_mt > 10000"))
	pc, err := NewSampleCollection(nil).Add(wz1, wz2).Book1D(mtAxis(), r)
	require.NoError(t, err)
	assert.Equal(t, map[int]float64{0: 1, 1: 2, 59: 4}, bins(t, pc, 0, 0))
	assert.Equal(t, map[int]float64{30: 1.5}, bins(t, pc, 1, 0))
}

func TestTitle(t *testing.T) {
	for _, s := range []string{"", "main", "main;x", "main;x;y", ";x;y"} {
		assert.Equal(t, s, ParseTitle(s).String())
	}
	assert.Equal(t, Title{Main: "a", X: "b", Y: "c;d"}, ParseTitle("a; b ;c;d"))
	assert.Equal(t, Title{Main: "WZ m", X: "x"}, Title{Main: "m", X: "x"}.withPrefix("WZ"))
	assert.Equal(t, Title{Main: "WZ"}, Title{}.withPrefix("WZ"))
}

func TestAxis(t *testing.T) {
	a := mtAxis()
	require.NoError(t, a.Validate())
	assert.True(t, a.Uniform())
	assert.Len(t, a.BinEdges(), 61)
	assert.Equal(t, "[MeV]", a.FormattedUnits())

	v := NewVarAxis("pt", "", []float64{0, 10, 50}, "GeV")
	require.NoError(t, v.Validate())
	assert.False(t, v.Uniform())
	assert.Equal(t, "bin", v.BinSize())
	assert.Equal(t, "pt [GeV]", v.Title())
	assert.Equal(t, []float64{0, 10, 50}, v.BinEdges())

	assert.Error(t, NewVarAxis("pt", "", []float64{0, 10, 5}, "").Validate())
	assert.Error(t, NewAxis("", "", 10, 0, 1, "").Validate())
	assert.Equal(t, "n", NewAxis("n", "", 10, 0, 1, "").Title())
}
