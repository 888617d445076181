// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
)

// rootSpellings rewrites the namespaces analysts habitually write
// in cut strings into plain function names.
var rootSpellings = strings.NewReplacer(
	"TMath::", "",
	"std::", "",
	"ROOT::VecOps::", "",
)

// Normalize returns the expression source actually compiled for s.
func Normalize(s string) string {
	s = strings.TrimSpace(rootSpellings.Replace(s))
	if s == "" {
		return "true"
	}
	return s
}

var funcs = struct {
	sync.RWMutex
	m map[string]func(...float64) float64
}{m: map[string]func(...float64) float64{
	"Abs":   func(x ...float64) float64 { return math.Abs(x[0]) },
	"Sqrt":  func(x ...float64) float64 { return math.Sqrt(x[0]) },
	"sqrt":  func(x ...float64) float64 { return math.Sqrt(x[0]) },
	"Cos":   func(x ...float64) float64 { return math.Cos(x[0]) },
	"cos":   func(x ...float64) float64 { return math.Cos(x[0]) },
	"Sin":   func(x ...float64) float64 { return math.Sin(x[0]) },
	"sin":   func(x ...float64) float64 { return math.Sin(x[0]) },
	"Tan":   func(x ...float64) float64 { return math.Tan(x[0]) },
	"tan":   func(x ...float64) float64 { return math.Tan(x[0]) },
	"Exp":   func(x ...float64) float64 { return math.Exp(x[0]) },
	"exp":   func(x ...float64) float64 { return math.Exp(x[0]) },
	"Log":   func(x ...float64) float64 { return math.Log(x[0]) },
	"log":   func(x ...float64) float64 { return math.Log(x[0]) },
	"Log10": func(x ...float64) float64 { return math.Log10(x[0]) },
	"Power": func(x ...float64) float64 { return math.Pow(x[0], x[1]) },
	"pow":   func(x ...float64) float64 { return math.Pow(x[0], x[1]) },
	"ATan2": func(x ...float64) float64 { return math.Atan2(x[0], x[1]) },
	"atan2": func(x ...float64) float64 { return math.Atan2(x[0], x[1]) },
	"Hypot": func(x ...float64) float64 { return math.Hypot(x[0], x[1]) },
	"Pi":    func(x ...float64) float64 { return math.Pi },
}}

var arity = map[string]int{"Power": 2, "pow": 2, "ATan2": 2, "atan2": 2, "Hypot": 2, "Pi": 0}

// RegisterFunc makes fn callable from filter and define expressions
// as name(args...). Arguments are converted to float64 and calls
// must pass exactly nargs arguments.
func RegisterFunc(name string, nargs int, fn func(...float64) float64) {
	funcs.Lock()
	defer funcs.Unlock()
	funcs.m[name] = fn
	arity[name] = nargs
	programs.Range(func(k, _ any) bool {
		programs.Delete(k)
		return true
	})
}

func funcOptions() []expr.Option {
	funcs.RLock()
	defer funcs.RUnlock()
	names := make([]string, 0, len(funcs.m))
	for name := range funcs.m {
		names = append(names, name)
	}
	sort.Strings(names)
	opts := make([]expr.Option, 0, len(names))
	for _, name := range names {
		fn, n := funcs.m[name], 1
		if a, ok := arity[name]; ok {
			n = a
		}
		opts = append(opts, expr.Function(name, func(params ...any) (any, error) {
			if len(params) != n {
				return nil, fmt.Errorf("%s takes %d arguments, got %d", name, n, len(params))
			}
			xs := make([]float64, len(params))
			for i, p := range params {
				x, ok := toFloat(p)
				if !ok {
					return nil, fmt.Errorf("%s: argument %d is %T, not a number", name, i, p)
				}
				xs[i] = x
			}
			return fn(xs...), nil
		}))
	}
	return opts
}

// identifiers returns the names referenced by the expression s.
func identifiers(s string) ([]string, error) {
	tree, err := parser.Parse(Normalize(s))
	if err != nil {
		return nil, err
	}
	v := &identVisitor{seen: map[string]bool{}}
	ast.Walk(&tree.Node, v)
	sort.Strings(v.names)
	return v.names, nil
}

type identVisitor struct {
	seen  map[string]bool
	names []string
}

func (v *identVisitor) Visit(n *ast.Node) {
	if id, ok := (*n).(*ast.IdentifierNode); ok && !v.seen[id.Value] {
		v.seen[id.Value] = true
		v.names = append(v.names, id.Value)
	}
}

// programs caches compiled programs by the hash of their source and
// the types of the columns they read, so cuts shared by many samples
// are compiled once.
var programs sync.Map // uint64 -> *vm.Program

func compile(s string, inputs []getter) (*vm.Program, error) {
	src := Normalize(s)
	env := make(map[string]any, len(inputs))
	var key strings.Builder
	key.WriteString(src)
	for _, g := range inputs {
		z := g.zero()
		env[g.name] = z
		fmt.Fprintf(&key, "\x00%s:%v", g.name, reflect.TypeOf(z))
	}
	h := xxhash.Sum64String(key.String())
	if p, ok := programs.Load(h); ok {
		return p.(*vm.Program), nil
	}
	opts := append([]expr.Option{expr.Env(env)}, funcOptions()...)
	p, err := expr.Compile(src, opts...)
	if err != nil {
		return nil, err
	}
	programs.Store(h, p)
	return p, nil
}

func run(p *vm.Program, env map[string]any) (any, error) {
	return expr.Run(p, env)
}

// truthy interprets a filter result: booleans as themselves and
// numbers as true when non-zero.
func truthy(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case nil:
		return false
	}
	x, ok := toFloat(v)
	return ok && x != 0
}

// toFloat converts a scalar column value to float64.
func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}

// floats returns the values of v: one value for a scalar, every
// element for a slice or array.
func floats(v any, buf []float64) ([]float64, error) {
	buf = buf[:0]
	if x, ok := toFloat(v); ok {
		return append(buf, x), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			x, ok := toFloat(rv.Index(i).Interface())
			if !ok {
				return nil, fmt.Errorf("element of %T is not a number", v)
			}
			buf = append(buf, x)
		}
		return buf, nil
	}
	return nil, fmt.Errorf("%T is not a number", v)
}
