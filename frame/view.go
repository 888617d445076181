// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/expr-lang/expr/vm"
)

// A View is an immutable node in a frame's computation graph. Each
// Filter or Define returns a new View; the receiver is unchanged,
// so results booked on a view never see later narrowing.
type View struct {
	f *Frame
	n *node // nil for the root
}

// Frame returns the frame v belongs to.
func (v *View) Frame() *Frame {
	return v.f
}

// Filter returns a view of the rows of v for which expr is true
// (or non-zero). A non-empty name makes the filter appear in
// cutflow reports.
func (v *View) Filter(expr, name string) *View {
	n := v.f.newNode(v.n, filterNode, name)
	n.src = expr
	return &View{v.f, n}
}

// Define returns a view of v with an extra column computed from
// expr.
func (v *View) Define(name, expr string) *View {
	n := v.f.newNode(v.n, defineNode, name)
	n.src = expr
	return &View{v.f, n}
}

// DefineFunc returns a view of v with an extra column computed by
// calling fn with the values of columns. fn must be a function with
// one result whose parameters the column values convert to.
func (v *View) DefineFunc(name string, fn any, columns ...string) *View {
	n := v.f.newNode(v.n, defineNode, name)
	n.fn = reflect.ValueOf(fn)
	n.args = append([]string(nil), columns...)
	return &View{v.f, n}
}

// Filters returns the names of the named filters between the root
// and v, in application order.
func (v *View) Filters() []string {
	var names []string
	for _, n := range v.n.chain() {
		if n.kind == filterNode && n.name != "" {
			names = append(names, n.name)
		}
	}
	return names
}

// Columns returns the columns visible from v: the source columns
// (once loaded) and every column defined on the path to v.
func (v *View) Columns() []string {
	v.f.mu.Lock()
	var cols []string
	for name := range v.f.cols {
		cols = append(cols, name)
	}
	v.f.mu.Unlock()
	for _, n := range v.n.chain() {
		if n.kind == defineNode {
			cols = append(cols, n.name)
		}
	}
	sort.Strings(cols)
	return cols
}

type nodeKind int

const (
	filterNode nodeKind = iota
	defineNode
)

func (k nodeKind) String() string {
	if k == filterNode {
		return "filter"
	}
	return "define"
}

type node struct {
	id     int
	parent *node
	kind   nodeKind
	name   string

	src  string
	fn   reflect.Value
	args []string

	// Resolved on first use, once the source is loaded.
	prog   *vm.Program
	inputs []getter

	// Per-loop state.
	row       int
	ok        bool
	value     any
	all, pass int64
}

// chain returns the nodes from the root to n.
func (n *node) chain() []*node {
	var c []*node
	for ; n != nil; n = n.parent {
		c = append(c, n)
	}
	for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
		c[i], c[j] = c[j], c[i]
	}
	return c
}

func (n *node) reset() {
	n.row = -1
	n.ok = false
	n.value = nil
	n.all, n.pass = 0, 0
}

func (n *node) String() string {
	if n.name != "" {
		return fmt.Sprintf("%s %q", n.kind, n.name)
	}
	return fmt.Sprintf("%s %q", n.kind, n.src)
}

// A getter reads one named column for the loop's current row.
type getter struct {
	name string
	col  reflect.Value // source column, if def is nil
	def  *node
}

func (g getter) get(l *loop) any {
	if g.def != nil {
		return g.def.value
	}
	return g.col.Index(l.row).Interface()
}

// zero returns a value of the column's type for type-checking
// expressions, or nil if the type is only known at run time.
func (g getter) zero() any {
	if g.def != nil {
		if g.def.fn.IsValid() {
			return reflect.Zero(g.def.fn.Type().Out(0)).Interface()
		}
		return nil
	}
	return reflect.Zero(g.col.Type().Elem()).Interface()
}

// loop holds the state of one event loop.
type loop struct {
	f   *Frame
	row int
	env map[string]any
}

// resolve finds the column called name as seen from the node
// below which it is read. Defined columns shadow source columns.
func (l *loop) resolve(below *node, name string) (getter, bool) {
	for n := below; n != nil; n = n.parent {
		if n.kind == defineNode && n.name == name {
			return getter{name: name, def: n}, true
		}
	}
	if col, ok := l.f.cols[name]; ok {
		return getter{name: name, col: col}, true
	}
	return getter{}, false
}

// prepare compiles n and its ancestors.
func (l *loop) prepare(n *node) error {
	for _, n := range n.chain() {
		if n.prog != nil || n.inputs != nil {
			continue
		}
		if err := l.compile(n); err != nil {
			return fmt.Errorf("%v: %w", n, err)
		}
	}
	return nil
}

func (l *loop) compile(n *node) error {
	if n.kind == defineNode {
		if _, ok := l.resolve(n.parent, n.name); ok {
			return fmt.Errorf("column %q is already defined", n.name)
		}
	}
	if n.fn.IsValid() {
		t := n.fn.Type()
		if t.Kind() != reflect.Func || t.NumOut() != 1 {
			return fmt.Errorf("want a function with one result, got %v", t)
		}
		if !t.IsVariadic() && t.NumIn() != len(n.args) {
			return fmt.Errorf("function takes %d arguments, got %d columns", t.NumIn(), len(n.args))
		}
		inputs := make([]getter, 0, len(n.args))
		for _, name := range n.args {
			g, ok := l.resolve(n.parent, name)
			if !ok {
				return fmt.Errorf("unknown column %q", name)
			}
			inputs = append(inputs, g)
		}
		n.inputs = inputs
		return nil
	}

	names, err := identifiers(n.src)
	if err != nil {
		return err
	}
	inputs := []getter{}
	for _, name := range names {
		if g, ok := l.resolve(n.parent, name); ok {
			inputs = append(inputs, g)
		}
	}
	prog, err := compile(n.src, inputs)
	if err != nil {
		return err
	}
	n.prog, n.inputs = prog, inputs
	return nil
}

// pass reports whether the current row reaches n, evaluating the
// filters and definitions on the way at most once per row.
func (l *loop) pass(n *node) (bool, error) {
	if n == nil {
		return true, nil
	}
	if n.row == l.row {
		return n.ok, nil
	}
	ok, err := l.pass(n.parent)
	if err != nil {
		return false, err
	}
	if ok {
		switch n.kind {
		case filterNode:
			n.all++
			v, err := l.eval(n)
			if err != nil {
				return false, err
			}
			ok = truthy(v)
			if ok {
				n.pass++
			}
		case defineNode:
			n.value, err = l.eval(n)
			if err != nil {
				return false, err
			}
		}
	}
	n.row, n.ok = l.row, ok
	return ok, nil
}

func (l *loop) eval(n *node) (any, error) {
	if n.fn.IsValid() {
		return l.call(n)
	}
	if l.env == nil {
		l.env = make(map[string]any)
	}
	for _, g := range n.inputs {
		l.env[g.name] = g.get(l)
	}
	v, err := run(n.prog, l.env)
	if err != nil {
		return nil, fmt.Errorf("%v at row %d: %w", n, l.row, err)
	}
	return v, nil
}

func (l *loop) call(n *node) (any, error) {
	t := n.fn.Type()
	args := make([]reflect.Value, len(n.inputs))
	for i, g := range n.inputs {
		var pt reflect.Type
		if t.IsVariadic() && i >= t.NumIn()-1 {
			pt = t.In(t.NumIn() - 1).Elem()
		} else {
			pt = t.In(i)
		}
		v := g.get(l)
		if v == nil {
			args[i] = reflect.Zero(pt)
			continue
		}
		av := reflect.ValueOf(v)
		switch {
		case av.Type().AssignableTo(pt):
		case av.CanConvert(pt):
			av = av.Convert(pt)
		default:
			return nil, fmt.Errorf("%v: column %q has type %v, want %v", n, g.name, av.Type(), pt)
		}
		args[i] = av
	}
	return n.fn.Call(args)[0].Interface(), nil
}
