// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

import (
	"context"
	"sync"
)

// A Result is a lazily computed aggregate. It is filled by the first
// event loop of its frame that runs after it was booked.
type Result[T any] struct {
	f *Frame

	mu   sync.Mutex
	done bool
	val  T
	err  error
}

func newResult[T any](f *Frame) *Result[T] {
	return &Result[T]{f: f}
}

// Get returns the value of r, running the frame's event loop if r
// has not been computed yet. An error from the loop is sticky.
func (r *Result[T]) Get(ctx context.Context) (T, error) {
	if !r.Ready() {
		if err := r.f.Run(ctx); err != nil {
			var zero T
			return zero, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.val, r.err
}

// Ready reports whether r has been computed (successfully or not).
func (r *Result[T]) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Frame returns the frame that computes r.
func (r *Result[T]) Frame() *Frame {
	return r.f
}

func (r *Result[T]) set(v T, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		var zero T
		v = zero
	}
	r.val, r.err, r.done = v, err, true
}

// An action is one booked aggregate. The event loop calls prepare
// once, exec for every row that reaches tip, and finish at the end.
type action interface {
	tip() *node
	prepare(l *loop) error
	exec(l *loop) error
	finish(err error)
}
