// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/aclements/go-gg/table"
	"github.com/kballard/go-shellquote"
)

// A Source supplies the rows of a frame as a column table.
type Source interface {
	Load(ctx context.Context) (*table.Table, error)
	String() string
}

// TableSource is a Source over an in-memory table.
type TableSource struct {
	Name  string
	Table *table.Table
}

func (s *TableSource) Load(ctx context.Context) (*table.Table, error) {
	if s.Table == nil {
		return new(table.Table), nil
	}
	return s.Table, nil
}

func (s *TableSource) String() string {
	if s.Name == "" {
		return "table"
	}
	return s.Name
}

// DefaultTree is the tree Open reads when none is named.
const DefaultTree = "tree"

// ErrNoInput is returned by Open when the paths match no files.
var ErrNoInput = errors.New("no input files")

// Open returns a Source reading the tree (or SQL table) called tree
// from paths. Each path may be a shell-quoted list of paths or
// globs. Paths with a "sqlite:" or "postgres:" prefix, or a .db or
// .sqlite extension, are read as SQL databases; all others are read
// as ROOT files. Multiple inputs are concatenated. An empty tree
// means DefaultTree.
func Open(tree string, paths ...string) (Source, error) {
	if tree == "" {
		tree = DefaultTree
	}
	var srcs []Source
	var rootFiles []string
	for _, arg := range paths {
		words, err := shellquote.Split(arg)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", arg, err)
		}
		for _, p := range words {
			switch {
			case strings.HasPrefix(p, "sqlite:"):
				srcs = append(srcs, &SQLSource{Driver: "sqlite", DSN: strings.TrimPrefix(p, "sqlite:"), Table: tree})
				continue
			case strings.HasPrefix(p, "postgres:"), strings.HasPrefix(p, "postgresql:"):
				srcs = append(srcs, &SQLSource{Driver: "pgx", DSN: p, Table: tree})
				continue
			}
			matches, err := filepath.Glob(p)
			if err != nil {
				return nil, fmt.Errorf("expanding %q: %w", p, err)
			}
			if matches == nil {
				return nil, fmt.Errorf("%w: %s", ErrNoInput, p)
			}
			for _, m := range matches {
				switch filepath.Ext(m) {
				case ".db", ".sqlite", ".sqlite3":
					srcs = append(srcs, &SQLSource{Driver: "sqlite", DSN: m, Table: tree})
				default:
					rootFiles = append(rootFiles, m)
				}
			}
		}
	}
	if rootFiles != nil {
		srcs = append(srcs, &TreeSource{Files: rootFiles, Tree: tree})
	}
	switch len(srcs) {
	case 0:
		return nil, ErrNoInput
	case 1:
		return srcs[0], nil
	}
	return Concat(srcs...), nil
}

// Concat returns a Source whose rows are the rows of each of srcs
// in turn. The sources must have the same columns.
func Concat(srcs ...Source) Source {
	return concatSource(srcs)
}

type concatSource []Source

func (s concatSource) String() string {
	names := make([]string, len(s))
	for i, src := range s {
		names[i] = src.String()
	}
	return strings.Join(names, "+")
}

func (s concatSource) Load(ctx context.Context) (*table.Table, error) {
	gs := make([]table.Grouping, 0, len(s))
	for _, src := range s {
		t, err := src.Load(ctx)
		if err != nil {
			return nil, err
		}
		if len(gs) > 0 && !sameColumns(gs[0].(*table.Table), t) {
			return nil, fmt.Errorf("%s: columns differ from %s", src, s[0])
		}
		gs = append(gs, t)
	}
	g := table.Concat(gs...)
	gids := g.Tables()
	if len(gids) == 0 {
		return new(table.Table), nil
	}
	return g.Table(gids[0]), nil
}

func sameColumns(a, b *table.Table) bool {
	ac, bc := a.Columns(), b.Columns()
	if len(ac) != len(bc) {
		return false
	}
	for _, name := range ac {
		x, y := a.Column(name), b.Column(name)
		if y == nil || reflect.TypeOf(x) != reflect.TypeOf(y) {
			return false
		}
	}
	return true
}

// columnBuilder accumulates the values of one column whose element
// type is learned from its first value.
type columnBuilder struct {
	name string
	col  reflect.Value
}

func (b *columnBuilder) append(v reflect.Value) {
	if !b.col.IsValid() {
		b.col = reflect.MakeSlice(reflect.SliceOf(v.Type()), 0, 1024)
	}
	if v.Kind() == reflect.Slice {
		// Readers reuse their buffers between rows.
		c := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		reflect.Copy(c, v)
		v = c
	}
	b.col = reflect.Append(b.col, v)
}

// build returns a table with the columns of bs in order.
func build(bs []*columnBuilder) *table.Table {
	tb := new(table.Builder)
	for _, b := range bs {
		if !b.col.IsValid() {
			continue
		}
		tb.Add(b.name, b.col.Interface())
	}
	return tb.Done()
}
