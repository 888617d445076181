// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package frame implements a small lazy columnar data frame.
//
// A Frame wraps a Source of rows. Views derived from the frame's
// root describe a chain of filters and column definitions. Booking
// an aggregate on a view (Histo1D, Histo2D, Sum, Count, Report)
// returns a Result that is not computed until it is first read.
// Reading any pending Result runs a single event loop over the
// source that fills every aggregate booked on that frame so far.
package frame

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aclements/go-gg/table"
	"golang.org/x/sync/errgroup"
)

// cancelCheckRows is how often the event loop polls its context.
const cancelCheckRows = 4096

var parallelism atomic.Int32

func init() {
	parallelism.Store(1)
}

// SetParallelism sets how many frames RunAll may process at once.
// n <= 0 selects GOMAXPROCS. It should be called once, before any
// results are read.
func SetParallelism(n int) {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	parallelism.Store(int32(n))
}

// Parallelism returns the current RunAll concurrency limit.
func Parallelism() int {
	return int(parallelism.Load())
}

// A Frame is a lazily evaluated view of the rows of a Source.
type Frame struct {
	src  Source
	opts options

	mu      sync.Mutex
	data    *table.Table
	cols    map[string]reflect.Value
	nrows   int
	nodes   []*node
	pending []action
	loops   int
	root    *View
}

// New returns a frame reading rows from src. Nothing is read until
// the first result is requested.
func New(src Source, opts ...Option) *Frame {
	f := &Frame{src: src, opts: defaultOptions()}
	for _, opt := range opts {
		opt(&f.opts)
	}
	f.root = &View{f: f}
	return f
}

// Root returns the unfiltered view of f.
func (f *Frame) Root() *View {
	return f.root
}

// Source returns the source of f.
func (f *Frame) Source() Source {
	return f.src
}

// Loops returns the number of event loops f has run.
func (f *Frame) Loops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loops
}

// Pending returns the number of booked results that have not been
// computed yet.
func (f *Frame) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

func (f *Frame) newNode(parent *node, kind nodeKind, name string) *node {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := &node{id: len(f.nodes), parent: parent, kind: kind, name: name, row: -1}
	f.nodes = append(f.nodes, n)
	return n
}

func (f *Frame) book(a action) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, a)
}

// Run computes every pending result of f in one pass over the
// source. It is a no-op if nothing is pending.
func (f *Frame) Run(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return nil
	}
	actions := f.pending
	f.pending = nil

	err := f.run(ctx, actions)
	for _, a := range actions {
		a.finish(err)
	}
	return err
}

func (f *Frame) load(ctx context.Context) error {
	if f.data != nil {
		return nil
	}
	t, err := f.src.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading %s: %w", f.src, err)
	}
	f.data = t
	f.nrows = t.Len()
	f.cols = make(map[string]reflect.Value)
	for _, name := range t.Columns() {
		f.cols[name] = reflect.ValueOf(t.Column(name))
	}
	f.opts.logger.Debug("loaded source", "source", f.src.String(), "rows", f.nrows, "columns", len(f.cols))
	return nil
}

func (f *Frame) run(ctx context.Context, actions []action) error {
	if err := f.load(ctx); err != nil {
		return err
	}
	start := time.Now()

	l := &loop{f: f, row: -1}
	for _, n := range f.nodes {
		n.reset()
	}
	for _, a := range actions {
		if err := a.prepare(l); err != nil {
			return err
		}
	}

	for row := 0; row < f.nrows; row++ {
		if row%cancelCheckRows == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		l.row = row
		for _, a := range actions {
			ok, err := l.pass(a.tip())
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := a.exec(l); err != nil {
				return err
			}
		}
	}

	f.loops++
	elapsed := time.Since(start)
	if m := f.opts.metrics; m != nil {
		m.observe(f.src.String(), f.nrows, elapsed)
	}
	f.opts.logger.Info("event loop", "source", f.src.String(), "rows", f.nrows, "actions", len(actions), "loop", f.loops, "elapsed", elapsed)
	return nil
}

// RunAll runs the pending results of every frame, processing up to
// Parallelism frames concurrently.
func RunAll(ctx context.Context, frames ...*Frame) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(Parallelism())
	seen := make(map[*Frame]bool)
	for _, f := range frames {
		if f == nil || seen[f] {
			continue
		}
		seen[f] = true
		g.Go(func() error {
			return f.Run(ctx)
		})
	}
	return g.Wait()
}

// Option configures a Frame.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *Metrics
}

func defaultOptions() options {
	return options{logger: slog.Default()}
}

// WithLogger sets the logger used to report event loops.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records event-loop statistics in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
