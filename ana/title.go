// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ana

import (
	"strings"

	"github.com/aclements/rdfana/render"
)

// Title is the title of a histogram and its axes.
type Title struct {
	Main string
	X, Y string
}

// String returns t in the "main;x;y" form used for stored object
// titles. Trailing empty parts are dropped.
func (t Title) String() string {
	parts := []string{t.Main, t.X, t.Y}
	for len(parts) > 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, ";")
}

// ParseTitle is the inverse of Title.String.
func ParseTitle(s string) Title {
	parts := strings.SplitN(s, ";", 3)
	var t Title
	t.Main = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		t.X = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		t.Y = strings.TrimSpace(parts[2])
	}
	return t
}

func (t Title) labels() render.Labels {
	return render.Labels{Title: t.Main, X: t.X, Y: t.Y}
}

// withPrefix returns t with p prepended to its main title.
func (t Title) withPrefix(p string) Title {
	if p == "" {
		return t
	}
	if t.Main == "" {
		t.Main = p
	} else {
		t.Main = p + " " + t.Main
	}
	return t
}
