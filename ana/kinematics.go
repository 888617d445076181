// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ana

import (
	"math"

	"github.com/aclements/rdfana/frame"
)

func init() {
	frame.RegisterFunc("deltaPhi", 2, func(a ...float64) float64 { return DeltaPhi(a[0], a[1]) })
	frame.RegisterFunc("deltaR", 4, func(a ...float64) float64 { return DeltaR(a[0], a[1], a[2], a[3]) })
}

// DeltaPhi returns the azimuthal separation of two directions,
// wrapped into [-π, π).
func DeltaPhi(phi1, phi2 float64) float64 {
	d := math.Mod(phi1-phi2+math.Pi, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	return d - math.Pi
}

// DeltaR returns the angular distance sqrt(Δη² + Δφ²).
func DeltaR(eta1, phi1, eta2, phi2 float64) float64 {
	return math.Hypot(eta1-eta2, DeltaPhi(phi1, phi2))
}
