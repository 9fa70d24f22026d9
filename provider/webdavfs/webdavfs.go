// Package webdavfs implements provider.Provider over WebDAV, the pack's
// one generic remote-file-service client and so the backend Dropbox- and
// Google-style connectors are fronted through (see
// original_source/providers/dropbox_provider.py, google_provider.py —
// both expose the same list/stat/open/delete shape over a REST API that
// gowebdav's client models closely enough to share one implementation).
package webdavfs

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"

	"github.com/shah0006/syncd/apperr"
	"github.com/shah0006/syncd/model"
	"github.com/shah0006/syncd/provider"
)

func init() {
	provider.Register("webdav", func(settings map[string]string) (provider.Provider, error) {
		c := gowebdav.NewClient(settings["url"], settings["user"], settings["password"])
		if err := c.Connect(); err != nil {
			return nil, apperr.New(apperr.Transient, "webdav connect failed", err)
		}
		return &WebDAV{client: c, root: settings["path"]}, nil
	})
}

// WebDAV is a Provider backed by a WebDAV-exposed remote tree.
type WebDAV struct {
	client *gowebdav.Client
	root   string
}

func (w *WebDAV) ID() string { return "webdav" }

func (w *WebDAV) abs(p string) string { return path.Join(w.root, strings.TrimPrefix(p, "/")) }

func wrapDavErr(op, p string, err error) error {
	if err == nil {
		return nil
	}
	if gowebdav.IsErrNotFound(err) {
		return apperr.New(apperr.NotFound, op+" "+p, err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		return apperr.New(apperr.AuthExpired, op+" "+p, err)
	case strings.Contains(msg, "429"):
		return apperr.RateLimitedWithHint(op+" "+p, err, 5)
	default:
		return apperr.New(apperr.Transient, op+" "+p, err)
	}
}

func toResource(relPath string, info gowebdav.File) model.FileResource {
	kind := model.KindFile
	if info.IsDir() {
		kind = model.KindDirectory
	}
	return model.FileResource{
		Path:  provider.Normalize(relPath),
		Name:  path.Base(relPath),
		Type:  kind,
		Size:  info.Size(),
		Mtime: float64(info.ModTime().UnixNano()) / float64(time.Second),
		Chksum: info.ETag(),
	}
}

func (w *WebDAV) Stat(ctx context.Context, p string) (model.FileResource, error) {
	info, err := w.client.Stat(w.abs(p))
	if err != nil {
		return model.FileResource{}, wrapDavErr("stat", p, err)
	}
	return toResource(p, info), nil
}

func (w *WebDAV) Exists(ctx context.Context, p string) (bool, error) {
	_, err := w.client.Stat(w.abs(p))
	if err == nil {
		return true, nil
	}
	if gowebdav.IsErrNotFound(err) {
		return false, nil
	}
	return false, wrapDavErr("exists", p, err)
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

func (w *WebDAV) walk(ctx context.Context, base, rel string, recursive bool, out *[]model.FileResource) error {
	entries, err := w.client.ReadDir(path.Join(base, rel))
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		childRel := path.Join(rel, e.Name())
		*out = append(*out, toResource(childRel, e))
		if e.IsDir() && recursive {
			if err := w.walk(ctx, base, childRel, recursive, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *WebDAV) ListDir(ctx context.Context, p string, recursive bool) (provider.Sequence, error) {
	var items []model.FileResource
	if err := w.walk(ctx, w.root, strings.TrimPrefix(p, "/"), recursive, &items); err != nil {
		return nil, wrapDavErr("list_dir", p, err)
	}
	return &seq{items: items}, nil
}

type readCloser struct{ io.ReadCloser }

func (w *WebDAV) Open(ctx context.Context, p string, mode provider.OpenMode) (io.Closer, error) {
	if mode == provider.ReadOnly {
		rc, err := w.client.ReadStream(w.abs(p))
		if err != nil {
			return nil, wrapDavErr("open", p, err)
		}
		return &readCloser{rc}, nil
	}
	return &writer{client: w.client, path: w.abs(p)}, nil
}

type writer struct {
	client *gowebdav.Client
	path   string
	buf    []byte
}

func (wr *writer) Write(p []byte) (int, error) {
	wr.buf = append(wr.buf, p...)
	return len(p), nil
}

func (wr *writer) Close() error {
	dir := path.Dir(wr.path)
	if dir != "." && dir != "/" {
		wr.client.MkdirAll(dir, 0o755)
	}
	return wrapDavErr("put", wr.path, wr.client.Write(wr.path, wr.buf, 0o644))
}

func (wr *writer) Abort() error { wr.buf = nil; return nil }

func (w *WebDAV) Mkdir(ctx context.Context, p string, parents bool) error {
	var err error
	if parents {
		err = w.client.MkdirAll(w.abs(p), 0o755)
	} else {
		err = w.client.Mkdir(w.abs(p), 0o755)
	}
	return wrapDavErr("mkdir", p, err)
}

func (w *WebDAV) Delete(ctx context.Context, p string, recursive bool) error {
	return wrapDavErr("delete", p, w.client.RemoveAll(w.abs(p)))
}

func (w *WebDAV) Move(ctx context.Context, src, dst string) error {
	return wrapDavErr("move", src, w.client.Rename(w.abs(src), w.abs(dst), true))
}

func (w *WebDAV) Copy(ctx context.Context, src, dst string) error {
	return wrapDavErr("copy", src, w.client.Copy(w.abs(src), w.abs(dst), true))
}

// SetMtime is a no-op: WebDAV PROPPATCH of getlastmodified is not widely
// honored by cloud-backed servers, mirroring the Dropbox/Google connectors.
func (w *WebDAV) SetMtime(ctx context.Context, p string, epochSeconds float64) error {
	return nil
}
