// Package memfs is an in-memory Provider used by the comparator, engine,
// executor, scanner and safety package tests so they don't depend on a real filesystem or
// network backend. It is a hand-rolled test double rather than a wrap of
// spf13/afero's MemMapFs — see DESIGN.md for why afero doesn't fit the
// provider capability shape directly.
package memfs

import (
	"bytes"
	"context"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/shah0006/syncd/apperr"
	"github.com/shah0006/syncd/model"
	"github.com/shah0006/syncd/provider"
)

type node struct {
	res  model.FileResource
	data []byte
}

// Memory is a thread-safe in-memory tree addressed by POSIX-style paths.
type Memory struct {
	mu    sync.RWMutex
	id    string
	nodes map[string]*node
}

// New returns an empty in-memory provider with the given identifier.
func New(id string) *Memory {
	m := &Memory{id: id, nodes: map[string]*node{}}
	m.nodes["/"] = &node{res: model.FileResource{Path: "/", Name: "/", Type: model.KindDirectory}}
	return m
}

func clean(p string) string {
	return provider.Normalize(p)
}

func (m *Memory) ID() string { return m.id }

// PutFile seeds a file directly, bypassing Open; used by tests to build a
// fixture tree in one call. Parent directories are created implicitly.
func (m *Memory) PutFile(p string, data []byte, mtime float64, checksum string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = clean(p)
	m.ensureParents(p)
	m.nodes[p] = &node{
		res: model.FileResource{
			Path: p, Name: path.Base(p), Type: model.KindFile,
			Size: int64(len(data)), Mtime: mtime, Chksum: checksum,
		},
		data: data,
	}
}

// PutDir seeds an empty directory.
func (m *Memory) PutDir(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = clean(p)
	m.ensureParents(p)
	if _, ok := m.nodes[p]; !ok {
		m.nodes[p] = &node{res: model.FileResource{Path: p, Name: path.Base(p), Type: model.KindDirectory}}
	}
}

func (m *Memory) ensureParents(p string) {
	dir := path.Dir(p)
	for dir != "/" && dir != "." {
		if _, ok := m.nodes[dir]; !ok {
			m.nodes[dir] = &node{res: model.FileResource{Path: dir, Name: path.Base(dir), Type: model.KindDirectory}}
		}
		dir = path.Dir(dir)
	}
}

func (m *Memory) Stat(ctx context.Context, p string) (model.FileResource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[clean(p)]
	if !ok {
		return model.FileResource{}, apperr.New(apperr.NotFound, "stat "+p, nil)
	}
	return n.res, nil
}

func (m *Memory) Exists(ctx context.Context, p string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nodes[clean(p)]
	return ok, nil
}

type seq struct {
	items []model.FileResource
	pos   int
}

func (s *seq) Next(ctx context.Context) bool {
	if ctx.Err() != nil || s.pos >= len(s.items) {
		return false
	}
	s.pos++
	return true
}
func (s *seq) Resource() model.FileResource { return s.items[s.pos-1] }
func (s *seq) Err() error                   { return nil }
func (s *seq) Close() error                 { return nil }

func (m *Memory) ListDir(ctx context.Context, p string, recursive bool) (provider.Sequence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	root := clean(p)
	var items []model.FileResource
	for candidate, n := range m.nodes {
		if candidate == "/" || candidate == root {
			continue
		}
		parent := path.Dir(candidate)
		if recursive {
			if root != "/" && !strings.HasPrefix(candidate, root+"/") {
				continue
			}
		} else if parent != root {
			continue
		}
		items = append(items, n.res)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	return &seq{items: items}, nil
}

type writer struct {
	m    *Memory
	path string
	buf  bytes.Buffer
}

func (w *writer) Write(p []byte) (int, error) { return w.buf.Write(p) }
func (w *writer) Close() error {
	w.m.PutFile(w.path, w.buf.Bytes(), 0, "")
	return nil
}
func (w *writer) Abort() error { return nil }

func (m *Memory) Open(ctx context.Context, p string, mode provider.OpenMode) (io.Closer, error) {
	p = clean(p)
	if mode == provider.WriteOnly {
		return &writer{m: m, path: p}, nil
	}
	m.mu.RLock()
	n, ok := m.nodes[p]
	m.mu.RUnlock()
	if !ok {
		return nil, apperr.New(apperr.NotFound, "open "+p, nil)
	}
	return io.NopCloser(bytes.NewReader(n.data)), nil
}

func (m *Memory) Mkdir(ctx context.Context, p string, parents bool) error {
	m.PutDir(p)
	return nil
}

func (m *Memory) Delete(ctx context.Context, p string, recursive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = clean(p)
	if _, ok := m.nodes[p]; !ok {
		return apperr.New(apperr.NotFound, "delete "+p, nil)
	}
	if !recursive {
		delete(m.nodes, p)
		return nil
	}
	prefix := p + "/"
	for candidate := range m.nodes {
		if candidate == p || strings.HasPrefix(candidate, prefix) {
			delete(m.nodes, candidate)
		}
	}
	return nil
}

func (m *Memory) Move(ctx context.Context, src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, dst = clean(src), clean(dst)
	n, ok := m.nodes[src]
	if !ok {
		return apperr.New(apperr.NotFound, "move "+src, nil)
	}
	delete(m.nodes, src)
	n.res.Path = dst
	n.res.Name = path.Base(dst)
	m.nodes[dst] = n
	m.ensureParents(dst)
	return nil
}

func (m *Memory) Copy(ctx context.Context, src, dst string) error {
	m.mu.Lock()
	n, ok := m.nodes[clean(src)]
	m.mu.Unlock()
	if !ok {
		return apperr.New(apperr.NotFound, "copy "+src, nil)
	}
	data := append([]byte(nil), n.data...)
	m.PutFile(dst, data, n.res.Mtime, n.res.Chksum)
	return nil
}

func (m *Memory) SetMtime(ctx context.Context, p string, epochSeconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[clean(p)]
	if !ok {
		return apperr.New(apperr.NotFound, "set_mtime "+p, nil)
	}
	n.res.Mtime = epochSeconds
	return nil
}
