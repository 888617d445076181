// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package archive collects histograms and writes them once, on
// Close, as a ROOT file and optionally a compressed YODA file.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/hbook"

	"github.com/aclements/rdfana/internal/sink"
)

// Codecs for the YODA archive.
const (
	NoYODA = ""
	Plain  = "none"
	Zstd   = "zstd"
	LZ4    = "lz4"
)

// An Archive accumulates named histograms. Adding a name twice
// replaces the earlier histogram.
type Archive struct {
	store  sink.Store
	dir    string
	base   string
	codec  string
	logger *slog.Logger

	mu     sync.Mutex
	names  []string
	objs   map[string]any // *hbook.H1D or *hbook.H2D
	closed bool
}

// An Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the archive's logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Archive) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithYODA also writes a YODA file compressed with codec.
func WithYODA(codec string) Option {
	return func(a *Archive) { a.codec = codec }
}

// WithPath sets the directory and base name of the output files.
// The default is ntuples/output.
func WithPath(dir, base string) Option {
	return func(a *Archive) { a.dir, a.base = dir, base }
}

// New returns an empty archive that writes to store.
func New(store sink.Store, opts ...Option) *Archive {
	a := &Archive{
		store:  store,
		dir:    "ntuples",
		base:   "output",
		logger: slog.Default(),
		objs:   make(map[string]any),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Archive) add(name string, obj any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		a.logger.Warn("histogram added to closed archive", "name", name)
		return
	}
	if _, ok := a.objs[name]; !ok {
		a.names = append(a.names, name)
	}
	a.objs[name] = obj
}

// AddH1 adds h under h.Name().
func (a *Archive) AddH1(h *hbook.H1D) { a.add(h.Name(), h) }

// AddH2 adds h under h.Name().
func (a *Archive) AddH2(h *hbook.H2D) { a.add(h.Name(), h) }

// Names returns the names added so far, in order.
func (a *Archive) Names() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.names...)
}

// ROOTKey returns the store key of the ROOT file.
func (a *Archive) ROOTKey() string { return path.Join(a.dir, a.base+".root") }

// YODAKey returns the store key of the YODA file.
func (a *Archive) YODAKey() string {
	k := path.Join(a.dir, a.base+".yoda")
	if a.codec != Plain && a.codec != NoYODA {
		k += "." + a.codec
	}
	return k
}

// ManifestKey returns the store key of the YODA checksum manifest.
func (a *Archive) ManifestKey() string { return path.Join(a.dir, a.base+".sum") }

// Close writes the archive. Later calls do nothing.
func (a *Archive) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	b, err := a.root()
	if err != nil {
		return fmt.Errorf("writing %s: %w", a.ROOTKey(), err)
	}
	if err := a.store.Put(ctx, a.ROOTKey(), b); err != nil {
		return err
	}
	a.logger.Info("wrote archive", "key", a.ROOTKey(), "objects", len(a.names))
	if a.codec == NoYODA {
		return nil
	}
	yoda, manifest, err := a.yoda()
	if err != nil {
		return fmt.Errorf("writing %s: %w", a.YODAKey(), err)
	}
	if err := a.store.Put(ctx, a.YODAKey(), yoda); err != nil {
		return err
	}
	return a.store.Put(ctx, a.ManifestKey(), manifest)
}

// root encodes the archive as a ROOT file. groot writes to a path,
// so the file goes through a temporary directory.
func (a *Archive) root() ([]byte, error) {
	dir, err := os.MkdirTemp("", "rdfana-archive-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)
	tmp := path.Join(dir, a.base+".root")

	f, err := groot.Create(tmp)
	if err != nil {
		return nil, err
	}
	for _, name := range a.names {
		switch h := a.objs[name].(type) {
		case *hbook.H1D:
			err = f.Put(name, rhist.NewH1DFrom(h))
		case *hbook.H2D:
			err = f.Put(name, rhist.NewH2DFrom(h))
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return os.ReadFile(tmp)
}

// yoda encodes the archive as compressed YODA text, with a manifest
// of one "<xxhash> <name>" line per object.
func (a *Archive) yoda() (data, manifest []byte, err error) {
	var text, sums bytes.Buffer
	for _, name := range a.names {
		var b []byte
		switch h := a.objs[name].(type) {
		case *hbook.H1D:
			b, err = h.MarshalYODA()
		case *hbook.H2D:
			b, err = h.MarshalYODA()
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", name, err)
		}
		text.Write(b)
		fmt.Fprintf(&sums, "%016x %s\n", xxhash.Sum64(b), name)
	}
	var out bytes.Buffer
	w, err := compressor(&out, a.codec)
	if err != nil {
		return nil, nil, err
	}
	if _, err := w.Write(text.Bytes()); err != nil {
		return nil, nil, err
	}
	if err := w.Close(); err != nil {
		return nil, nil, err
	}
	return out.Bytes(), sums.Bytes(), nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func compressor(w io.Writer, codec string) (io.WriteCloser, error) {
	switch codec {
	case Plain:
		return nopCloser{w}, nil
	case Zstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	case LZ4:
		return lz4.NewWriter(w), nil
	}
	return nil, fmt.Errorf("unknown YODA codec %q", codec)
}

// Decompress reverses the compression of a YODA archive.
func Decompress(data []byte, codec string) ([]byte, error) {
	switch codec {
	case Plain:
		return data, nil
	case Zstd:
		d, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer d.Close()
		return d.DecodeAll(data, nil)
	case LZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	}
	return nil, fmt.Errorf("unknown YODA codec %q", codec)
}
