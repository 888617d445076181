// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ana

import (
	"context"
	"image/color"
	"math"
	"testing"

	"github.com/aclements/go-gg/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aclements/rdfana/frame"
)

func TestDeltaPhi(t *testing.T) {
	for _, tc := range []struct{ a, b, want float64 }{
		{0, 0, 0},
		{1, 0.5, 0.5},
		{0.5, 1, -0.5},
		{3, -3, 6 - 2*math.Pi},
		{-3, 3, 2*math.Pi - 6},
		{math.Pi, 0, -math.Pi},
	} {
		assert.InDelta(t, tc.want, DeltaPhi(tc.a, tc.b), 1e-12, "DeltaPhi(%v, %v)", tc.a, tc.b)
	}
	assert.InDelta(t, 0.5, DeltaR(0.3, 0.4, 0, 0), 1e-12)
	assert.InDelta(t, math.Hypot(1, 6-2*math.Pi), DeltaR(1, 3, 0, -3), 1e-12)
}

func TestDeltaRColumn(t *testing.T) {
	tab := new(table.Builder).
		Add("eta1", []float64{0, 1}).
		Add("phi1", []float64{0, 3}).
		Add("eta2", []float64{3, 0}).
		Add("phi2", []float64{4, -3}).
		Done()
	s := NewSample("pairs", &frame.TableSource{Table: tab}, color.Black).
		Define("dr", "deltaR(eta1, phi1, eta2, phi2)").
		Define("dphi", "deltaPhi(phi1, phi2)")
	ctx := context.Background()
	dr, err := s.View().Sum("dr").Get(ctx)
	require.NoError(t, err)
	want := math.Hypot(3, 4-2*math.Pi) + math.Hypot(1, 6-2*math.Pi)
	assert.InDelta(t, want, dr, 1e-9)

	n, err := s.Filter("dr < 3", "close").View().Count().Get(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
