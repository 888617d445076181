// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ana

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrDuplicateRegion = errors.New("duplicate region")
	ErrUnknownRegion   = errors.New("unknown region")
)

// Regions is an ordered set of named selections. A region's cut may
// be overridden for samples carrying a given flag.
type Regions struct {
	regions []region
	logger  *slog.Logger
}

type region struct {
	name, desc, cut string
	overrides       []flagCut // in insertion order
}

type flagCut struct {
	flag, cut string
}

// NewRegions returns an empty region set that logs rejected
// operations to logger (or slog.Default if nil).
func NewRegions(logger *slog.Logger) *Regions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Regions{logger: logger}
}

func (r *Regions) log() *slog.Logger {
	if r.logger == nil {
		return slog.Default()
	}
	return r.logger
}

// Add appends a region. The description defaults to the cut. Adding
// a name that already exists is logged and has no effect.
func (r *Regions) Add(name, cut, description string) error {
	if r.Index(name) >= 0 {
		err := fmt.Errorf("%w: %q", ErrDuplicateRegion, name)
		r.log().Error("region not added", "region", name, "err", err)
		return err
	}
	if description == "" {
		description = cut
	}
	r.regions = append(r.regions, region{name: name, desc: description, cut: cut})
	return nil
}

// SetFlagCut makes samples carrying flag use cut in the named
// region, replacing any earlier override for the same flag. An
// unknown region is logged and has no effect.
func (r *Regions) SetFlagCut(name, flag, cut string) error {
	i := r.Index(name)
	if i < 0 {
		err := fmt.Errorf("%w: %q", ErrUnknownRegion, name)
		r.log().Error("flag cut not set", "region", name, "flag", flag, "err", err)
		return err
	}
	reg := &r.regions[i]
	for j := range reg.overrides {
		if reg.overrides[j].flag == flag {
			reg.overrides[j].cut = cut
			return nil
		}
	}
	reg.overrides = append(reg.overrides, flagCut{flag, cut})
	return nil
}

// Cut returns the cut of region i for s: the first override, in
// insertion order, whose flag s carries, or else the region's
// default cut.
func (r *Regions) Cut(i int, s Flagged) string {
	reg := r.regions[i]
	for _, o := range reg.overrides {
		if s.HasFlag(o.flag) {
			return o.cut
		}
	}
	return reg.cut
}

// Name returns the name of region i.
func (r *Regions) Name(i int) string { return r.regions[i].name }

// Description returns the description of region i.
func (r *Regions) Description(i int) string { return r.regions[i].desc }

// Len returns the number of regions. A nil *Regions has none.
func (r *Regions) Len() int {
	if r == nil {
		return 0
	}
	return len(r.regions)
}

// Index returns the index of the named region, or -1.
func (r *Regions) Index(name string) int {
	if r == nil {
		return -1
	}
	for i, reg := range r.regions {
		if reg.name == name {
			return i
		}
	}
	return -1
}

// Flagged is implemented by anything carrying flags.
type Flagged interface {
	HasFlag(flag string) bool
}
