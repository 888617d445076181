// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sink stores the files produced by an analysis: plots,
// tables and archives.
package sink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("not found")

// A Store holds named blobs. Keys are slash-separated relative
// paths such as "plots/mt_stack_nl3.png".
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// cleanKey rejects empty, absolute and escaping keys.
func cleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key %q", key)
	}
	clean := filepath.ToSlash(filepath.Clean(key))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid key %q escapes the store", key)
	}
	return clean, nil
}

// FS stores blobs as files under a directory.
type FS struct {
	Dir string
}

// NewFS returns a store rooted at dir.
func NewFS(dir string) *FS {
	return &FS{Dir: dir}
}

func (s *FS) String() string { return s.Dir }

func (s *FS) path(key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Dir, filepath.FromSlash(k)), nil
}

// Put writes data to key, replacing it atomically.
func (s *FS) Put(ctx context.Context, key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

// Get reads key.
func (s *FS) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return data, err
}

// Memory stores blobs in memory. It is safe for concurrent use.
type Memory struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (s *Memory) Put(ctx context.Context, key string, data []byte) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[k] = append([]byte(nil), data...)
	return nil
}

func (s *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[k]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Keys returns the stored keys in sorted order.
func (s *Memory) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Open returns the store named by u:
//
//	mem://                                in memory
//	s3://bucket/prefix?region=&endpoint=&path_style=true
//	file:///dir or a plain path           a directory
func Open(ctx context.Context, u string) (Store, error) {
	switch {
	case u == "mem://" || u == "mem:":
		return NewMemory(), nil
	case strings.HasPrefix(u, "s3://"):
		pu, err := url.Parse(u)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", u, err)
		}
		q := pu.Query()
		return NewS3(ctx, S3Config{
			Bucket:    pu.Host,
			Prefix:    strings.TrimPrefix(pu.Path, "/"),
			Region:    q.Get("region"),
			Endpoint:  q.Get("endpoint"),
			PathStyle: strings.EqualFold(q.Get("path_style"), "true"),
		})
	case strings.HasPrefix(u, "file://"):
		return NewFS(strings.TrimPrefix(u, "file://")), nil
	case u == "":
		return NewFS("."), nil
	}
	return NewFS(u), nil
}
