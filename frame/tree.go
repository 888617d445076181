// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/aclements/go-gg/table"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"
)

// TreeSource reads a tree from one or more ROOT files. Every branch
// the tree reader supports becomes a column; the files' rows are
// concatenated in order.
type TreeSource struct {
	Files []string
	Tree  string
}

func (s *TreeSource) String() string {
	return s.Tree + "@" + strings.Join(s.Files, ",")
}

func (s *TreeSource) Load(ctx context.Context) (*table.Table, error) {
	var bs []*columnBuilder
	for _, path := range s.Files {
		var err error
		bs, err = s.read(ctx, path, bs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return build(bs), nil
}

func (s *TreeSource) read(ctx context.Context, path string, bs []*columnBuilder) ([]*columnBuilder, error) {
	f, err := groot.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	obj, err := f.Get(s.Tree)
	if err != nil {
		return nil, err
	}
	t, ok := obj.(rtree.Tree)
	if !ok {
		return nil, fmt.Errorf("%s is a %T, not a tree", s.Tree, obj)
	}

	rvars := rtree.NewReadVars(t)
	if bs == nil {
		for _, rv := range rvars {
			bs = append(bs, &columnBuilder{name: rv.Name})
		}
	} else if len(bs) != len(rvars) {
		return nil, fmt.Errorf("tree %s has %d branches, want %d", s.Tree, len(rvars), len(bs))
	}
	for i, rv := range rvars {
		if rv.Name != bs[i].name {
			return nil, fmt.Errorf("tree %s branch %d is %q, want %q", s.Tree, i, rv.Name, bs[i].name)
		}
	}

	r, err := rtree.NewReader(t, rvars)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	vals := make([]reflect.Value, len(rvars))
	for i, rv := range rvars {
		vals[i] = reflect.ValueOf(rv.Value).Elem()
	}
	err = r.Read(func(rctx rtree.RCtx) error {
		if rctx.Entry%cancelCheckRows == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for i, v := range vals {
			bs[i].append(v)
		}
		return nil
	})
	return bs, err
}
