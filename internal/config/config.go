// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config parses YAML analysis descriptions.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"
)

// An Analysis describes the samples, selections and outputs of one
// analysis.
type Analysis struct {
	Parallelism int     `yaml:"parallelism"`
	Luminosity  float64 `yaml:"luminosity"` // scales simulated plots; default 1
	Output      Output  `yaml:"output"`

	Samples    []Sample    `yaml:"samples"`
	Composites []Composite `yaml:"composites"`
	Defines    []Define    `yaml:"defines"`
	Filters    []Filter    `yaml:"filters"`
	Regions    []Region    `yaml:"regions"`
	Axes       []Axis      `yaml:"axes"`
	Plots      []Plot      `yaml:"plots"`
	Tables     []Table     `yaml:"tables"`
}

// Output says where results go.
type Output struct {
	Dir       string `yaml:"dir"` // directory, mem:// or s3://bucket/prefix
	Extension string `yaml:"extension"`
	ROOT      bool   `yaml:"root"`
	YODA      string `yaml:"yoda"` // "", none, zstd or lz4
}

// DefaultTree is the tree read from samples that name none.
const DefaultTree = "tree"

// A Sample is one input dataset.
type Sample struct {
	Name        string   `yaml:"name"`
	Files       Files    `yaml:"files"`
	Tree        string   `yaml:"tree"`
	Color       Color    `yaml:"color"`
	Description string   `yaml:"description"`
	Data        bool     `yaml:"data"`
	Flags       []string `yaml:"flags"`
	XSec        float64  `yaml:"xsec"`
	Lumi        float64  `yaml:"lumi"`
	Weights     *Weights `yaml:"weights"`
}

// Weights names a sample's weight columns.
type Weights struct {
	Lumi string `yaml:"lumi"`
	Fill string `yaml:"fill"`
}

// A Composite presents several samples as one.
type Composite struct {
	Name        string   `yaml:"name"`
	Color       Color    `yaml:"color"`
	Description string   `yaml:"description"`
	Data        bool     `yaml:"data"`
	Flags       []string `yaml:"flags"`
	Samples     []string `yaml:"samples"`
}

// A Define adds a column to the samples carrying any of Flags, or
// to all samples.
type Define struct {
	Name  string   `yaml:"name"`
	Expr  string   `yaml:"expr"`
	Flags []string `yaml:"flags"`
}

// A Filter applies a cut.
type Filter struct {
	Expr        string   `yaml:"expr"`
	Description string   `yaml:"description"`
	Flags       []string `yaml:"flags"`
}

// A Region is a named selection.
type Region struct {
	Name        string     `yaml:"name"`
	Cut         string     `yaml:"cut"`
	Description string     `yaml:"description"`
	Overrides   []Override `yaml:"overrides"`
}

// An Override replaces a region's cut for samples carrying Flag.
type Override struct {
	Flag string `yaml:"flag"`
	Cut  string `yaml:"cut"`
}

// An Axis is a binned variable.
type Axis struct {
	Name  string    `yaml:"name"`
	Label string    `yaml:"label"`
	Units string    `yaml:"units"`
	Bins  int       `yaml:"bins"`
	Low   float64   `yaml:"low"`
	High  float64   `yaml:"high"`
	Edges []float64 `yaml:"edges"`
}

// A Plot books one collection of the named axes.
type Plot struct {
	X          string      `yaml:"x"`
	Y          string      `yaml:"y"`
	Style      string      `yaml:"style"`  // overlay or stack
	Bottom     string      `yaml:"bottom"` // none or ratio
	LogY       bool        `yaml:"logy"`
	Each       bool        `yaml:"each"` // draw every sample separately
	Efficiency *Efficiency `yaml:"efficiency"`
	NoRegions  bool        `yaml:"noregions"`
}

// Efficiency selects the numerator of an efficiency plot.
type Efficiency struct {
	Cut         string `yaml:"cut"`
	Description string `yaml:"description"`
}

// A Table saves the cutflow of all samples.
type Table struct {
	File string `yaml:"file"` // LaTeX
	XLSX string `yaml:"xlsx"`
}

// Files is a list of input paths. In YAML it is either a sequence
// or a single shell-quoted string.
type Files []string

func (f *Files) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		words, err := shellquote.Split(n.Value)
		if err != nil {
			return fmt.Errorf("line %d: files: %w", n.Line, err)
		}
		*f = words
		return nil
	case yaml.SequenceNode:
		var fs []string
		if err := n.Decode(&fs); err != nil {
			return err
		}
		*f = fs
		return nil
	}
	return fmt.Errorf("line %d: files must be a string or a list", n.Line)
}

// Color is a color given by name or as #rrggbb.
type Color struct {
	color.Color
}

func (c *Color) UnmarshalYAML(n *yaml.Node) error {
	col, err := ParseColor(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	c.Color = col
	return nil
}

// ParseColor parses an SVG color name or a #rrggbb hex color.
func ParseColor(s string) (color.Color, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") && len(s) == 7 {
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("bad color %q", s)
		}
		return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}, nil
	}
	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("unknown color %q", s)
}

// Load reads and validates an analysis file.
func Load(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// Parse parses and validates an analysis.
func Parse(data []byte) (*Analysis, error) {
	a := new(Analysis)
	if err := yaml.Unmarshal(data, a); err != nil {
		return nil, err
	}
	if a.Luminosity == 0 {
		a.Luminosity = 1
	}
	for i := range a.Samples {
		if a.Samples[i].Tree == "" {
			a.Samples[i].Tree = DefaultTree
		}
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks the cross references of a.
func (a *Analysis) Validate() error {
	var errs []error
	samples := make(map[string]bool)
	for _, s := range a.Samples {
		switch {
		case s.Name == "":
			errs = append(errs, errors.New("sample with no name"))
		case samples[s.Name]:
			errs = append(errs, fmt.Errorf("duplicate sample %q", s.Name))
		case len(s.Files) == 0:
			errs = append(errs, fmt.Errorf("sample %q has no files", s.Name))
		case s.Weights != nil && s.Weights.Lumi == "":
			errs = append(errs, fmt.Errorf("sample %q: weights need a lumi column", s.Name))
		}
		samples[s.Name] = true
	}
	used := make(map[string]string)
	for _, c := range a.Composites {
		if samples[c.Name] {
			errs = append(errs, fmt.Errorf("composite %q has the name of a sample", c.Name))
		}
		for _, s := range c.Samples {
			if !samples[s] {
				errs = append(errs, fmt.Errorf("composite %q: unknown sample %q", c.Name, s))
			} else if prev, ok := used[s]; ok {
				errs = append(errs, fmt.Errorf("sample %q is in composites %q and %q", s, prev, c.Name))
			}
			used[s] = c.Name
		}
	}
	axes := make(map[string]bool)
	for _, ax := range a.Axes {
		axes[ax.Name] = true
	}
	for i, p := range a.Plots {
		if !axes[p.X] {
			errs = append(errs, fmt.Errorf("plot %d: unknown axis %q", i, p.X))
		}
		if p.Y != "" && !axes[p.Y] {
			errs = append(errs, fmt.Errorf("plot %d: unknown axis %q", i, p.Y))
		}
		switch p.Style {
		case "", "overlay", "stack":
		default:
			errs = append(errs, fmt.Errorf("plot %d: unknown style %q", i, p.Style))
		}
		switch p.Bottom {
		case "", "none", "ratio", "upper_cut_significance", "lower_cut_significance":
		default:
			errs = append(errs, fmt.Errorf("plot %d: unknown bottom %q", i, p.Bottom))
		}
	}
	switch a.Output.YODA {
	case "", "none", "zstd", "lz4":
	default:
		errs = append(errs, fmt.Errorf("unknown yoda codec %q", a.Output.YODA))
	}
	return errors.Join(errs...)
}

// Axis returns the axis with the given name.
func (a *Analysis) Axis(name string) (Axis, bool) {
	for _, ax := range a.Axes {
		if ax.Name == name {
			return ax, true
		}
	}
	return Axis{}, false
}
