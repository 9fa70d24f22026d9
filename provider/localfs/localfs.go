// Package localfs implements provider.Provider over the host filesystem,
// the default backend for config mode "local".
package localfs

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shah0006/syncd/apperr"
	"github.com/shah0006/syncd/model"
	"github.com/shah0006/syncd/provider"
)

func init() {
	provider.Register("local", func(settings map[string]string) (provider.Provider, error) {
		root := settings["path"]
		if root == "" {
			return nil, apperr.New(apperr.Fatal, "local provider requires a path setting", nil)
		}
		return New(root), nil
	})
}

// Local is a Provider rooted at a directory on the host filesystem. Paths
// passed to its methods are POSIX-style and relative to Root.
type Local struct {
	Root string
}

// New returns a Local provider rooted at root.
func New(root string) *Local {
	return &Local{Root: filepath.Clean(root)}
}

func (l *Local) ID() string { return "local" }

func (l *Local) abs(path string) string {
	return filepath.Join(l.Root, filepath.FromSlash(strings.TrimPrefix(path, "/")))
}

func toResource(relPath string, info fs.FileInfo) model.FileResource {
	kind := model.KindFile
	switch {
	case info.IsDir():
		kind = model.KindDirectory
	case info.Mode()&fs.ModeSymlink != 0:
		kind = model.KindSymlink
	}
	return model.FileResource{
		Path:  provider.Normalize(filepath.ToSlash(relPath)),
		Name:  filepath.Base(relPath),
		Type:  kind,
		Size:  info.Size(),
		Mtime: float64(info.ModTime().UnixNano()) / float64(time.Second),
	}
}

func wrapOSErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return apperr.New(apperr.NotFound, op+" "+path, err)
	}
	if os.IsPermission(err) {
		return apperr.New(apperr.AuthExpired, op+" "+path, err)
	}
	return apperr.New(apperr.Transient, op+" "+path, err)
}

func (l *Local) Stat(ctx context.Context, path string) (model.FileResource, error) {
	info, err := os.Lstat(l.abs(path))
	if err != nil {
		return model.FileResource{}, wrapOSErr("stat", path, err)
	}
	return toResource(path, info), nil
}

func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Lstat(l.abs(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, wrapOSErr("exists", path, err)
}

// sequence is a pre-collected []model.FileResource walked eagerly; local
// disks don't paginate so there's no benefit to true lazy production, but
// the interface stays identical to the remote backends.
type sequence struct {
	items []model.FileResource
	pos   int
	err   error
}

func (s *sequence) Next(ctx context.Context) bool {
	if ctx.Err() != nil {
		s.err = ctx.Err()
		return false
	}
	if s.pos >= len(s.items) {
		return false
	}
	s.pos++
	return true
}

func (s *sequence) Resource() model.FileResource { return s.items[s.pos-1] }
func (s *sequence) Err() error                   { return s.err }
func (s *sequence) Close() error                 { return nil }

func (l *Local) ListDir(ctx context.Context, path string, recursive bool) (provider.Sequence, error) {
	root := l.abs(path)
	var items []model.FileResource

	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				return &sequence{}, nil
			}
			return nil, wrapOSErr("list_dir", path, err)
		}
		for _, e := range entries {
			info, err := e.Info()
			if err != nil {
				continue
			}
			items = append(items, toResource(filepath.Join(path, e.Name()), info))
		}
		return &sequence{items: items}, nil
	}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if p == root {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(l.Root, p)
		if err != nil {
			return nil
		}
		items = append(items, toResource(rel, info))
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, wrapOSErr("list_dir", path, err)
	}
	return &sequence{items: items}, nil
}

type writeStream struct {
	f       *os.File
	tmpPath string
	finalPath string
}

func (w *writeStream) Write(p []byte) (int, error) { return w.f.Write(p) }

func (w *writeStream) Close() error {
	if err := w.f.Close(); err != nil {
		os.Remove(w.tmpPath)
		return wrapOSErr("close", w.finalPath, err)
	}
	if err := os.Rename(w.tmpPath, w.finalPath); err != nil {
		os.Remove(w.tmpPath)
		return wrapOSErr("rename", w.finalPath, err)
	}
	return nil
}

func (w *writeStream) Abort() error {
	w.f.Close()
	return os.Remove(w.tmpPath)
}

func (l *Local) Open(ctx context.Context, path string, mode provider.OpenMode) (io.Closer, error) {
	abs := l.abs(path)
	if mode == provider.ReadOnly {
		f, err := os.Open(abs)
		if err != nil {
			return nil, wrapOSErr("open", path, err)
		}
		return f, nil
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, wrapOSErr("mkdir", path, err)
	}
	tmp := abs + ".syncd-tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, wrapOSErr("open", path, err)
	}
	return &writeStream{f: f, tmpPath: tmp, finalPath: abs}, nil
}

func (l *Local) Mkdir(ctx context.Context, path string, parents bool) error {
	abs := l.abs(path)
	var err error
	if parents {
		err = os.MkdirAll(abs, 0o755)
	} else {
		err = os.Mkdir(abs, 0o755)
		if os.IsExist(err) {
			err = nil
		}
	}
	return wrapOSErr("mkdir", path, err)
}

func (l *Local) Delete(ctx context.Context, path string, recursive bool) error {
	abs := l.abs(path)
	var err error
	if recursive {
		err = os.RemoveAll(abs)
	} else {
		err = os.Remove(abs)
	}
	return wrapOSErr("delete", path, err)
}

func (l *Local) Move(ctx context.Context, src, dst string) error {
	absDst := l.abs(dst)
	if err := os.MkdirAll(filepath.Dir(absDst), 0o755); err != nil {
		return wrapOSErr("mkdir", dst, err)
	}
	if err := os.Rename(l.abs(src), absDst); err != nil {
		return wrapOSErr("move", src, err)
	}
	return nil
}

func (l *Local) Copy(ctx context.Context, src, dst string) error {
	return provider.ErrUnsupported
}

func (l *Local) SetMtime(ctx context.Context, path string, epochSeconds float64) error {
	t := time.Unix(0, int64(epochSeconds*float64(time.Second)))
	if err := os.Chtimes(l.abs(path), t, t); err != nil {
		return wrapOSErr("set_mtime", path, err)
	}
	return nil
}
