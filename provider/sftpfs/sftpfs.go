// Package sftpfs implements provider.Provider over SFTP, grounded on
// original_source/providers/sftp_provider.py's paramiko-based client
// wrapped here with pkg/sftp over a golang.org/x/crypto/ssh transport.
package sftpfs

import (
	"context"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/shah0006/syncd/apperr"
	"github.com/shah0006/syncd/model"
	"github.com/shah0006/syncd/provider"
)

func init() {
	provider.Register("sftp", func(settings map[string]string) (provider.Provider, error) {
		cfg := &ssh.ClientConfig{
			User:            settings["user"],
			Auth:            []ssh.AuthMethod{ssh.Password(settings["password"])},
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
			Timeout:         15 * time.Second,
		}
		addr := settings["host"]
		if settings["port"] != "" {
			addr = addr + ":" + settings["port"]
		} else {
			addr = addr + ":22"
		}
		conn, err := ssh.Dial("tcp", addr, cfg)
		if err != nil {
			return nil, apperr.New(apperr.Transient, "sftp dial failed", err)
		}
		client, err := sftp.NewClient(conn)
		if err != nil {
			conn.Close()
			return nil, apperr.New(apperr.Transient, "sftp handshake failed", err)
		}
		return &SFTP{conn: conn, client: client, root: settings["path"]}, nil
	})
}

// SFTP is a Provider backed by one SFTP session rooted at Root.
type SFTP struct {
	conn   *ssh.Client
	client *sftp.Client
	root   string
}

func (s *SFTP) ID() string { return "sftp" }

func (s *SFTP) abs(p string) string { return path.Join(s.root, strings.TrimPrefix(p, "/")) }

// Close releases the underlying SSH connection. It is not part of the
// Provider interface, and nothing in this module calls it.
func (s *SFTP) Close() error {
	s.client.Close()
	return s.conn.Close()
}

func wrapSftpErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) || err == sftp.ErrSSHFxNoSuchFile {
		return apperr.New(apperr.NotFound, op+" "+path, err)
	}
	if os.IsPermission(err) {
		return apperr.New(apperr.AuthExpired, op+" "+path, err)
	}
	return apperr.New(apperr.Transient, op+" "+path, err)
}

func toResource(relPath string, info os.FileInfo) model.FileResource {
	kind := model.KindFile
	if info.IsDir() {
		kind = model.KindDirectory
	} else if info.Mode()&os.ModeSymlink != 0 {
		kind = model.KindSymlink
	}
	return model.FileResource{
		Path:  provider.Normalize(relPath),
		Name:  path.Base(relPath),
		Type:  kind,
		Size:  info.Size(),
		Mtime: float64(info.ModTime().UnixNano()) / float64(time.Second),
	}
}

func (s *SFTP) Stat(ctx context.Context, p string) (model.FileResource, error) {
	info, err := s.client.Stat(s.abs(p))
	if err != nil {
		return model.FileResource{}, wrapSftpErr("stat", p, err)
	}
	return toResource(p, info), nil
}

func (s *SFTP) Exists(ctx context.Context, p string) (bool, error) {
	_, err := s.client.Stat(s.abs(p))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, wrapSftpErr("exists", p, err)
}

type seq struct {
	items []model.FileResource
	pos   int
}

func (q *seq) Next(ctx context.Context) bool {
	if ctx.Err() != nil || q.pos >= len(q.items) {
		return false
	}
	q.pos++
	return true
}
func (q *seq) Resource() model.FileResource { return q.items[q.pos-1] }
func (q *seq) Err() error                   { return nil }
func (q *seq) Close() error                 { return nil }

func (s *SFTP) walk(ctx context.Context, base, rel string, recursive bool, out *[]model.FileResource) error {
	entries, err := s.client.ReadDir(path.Join(base, rel))
	if err != nil {
		if os.IsNotExist(err) {
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
			if err := s.walk(ctx, base, childRel, recursive, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SFTP) ListDir(ctx context.Context, p string, recursive bool) (provider.Sequence, error) {
	var items []model.FileResource
	if err := s.walk(ctx, s.root, strings.TrimPrefix(p, "/"), recursive, &items); err != nil {
		return nil, wrapSftpErr("list_dir", p, err)
	}
	return &seq{items: items}, nil
}

type readCloser struct{ *sftp.File }

func (s *SFTP) Open(ctx context.Context, p string, mode provider.OpenMode) (io.Closer, error) {
	if mode == provider.ReadOnly {
		f, err := s.client.Open(s.abs(p))
		if err != nil {
			return nil, wrapSftpErr("open", p, err)
		}
		return &readCloser{f}, nil
	}
	if err := s.client.MkdirAll(path.Dir(s.abs(p))); err != nil {
		return nil, wrapSftpErr("mkdir", p, err)
	}
	tmp := s.abs(p) + ".syncd-tmp"
	f, err := s.client.Create(tmp)
	if err != nil {
		return nil, wrapSftpErr("open", p, err)
	}
	return &writeStream{client: s.client, f: f, tmpPath: tmp, finalPath: s.abs(p)}, nil
}

type writeStream struct {
	client             *sftp.Client
	f                  *sftp.File
	tmpPath, finalPath string
}

func (w *writeStream) Write(p []byte) (int, error) { return w.f.Write(p) }
func (w *writeStream) Close() error {
	if err := w.f.Close(); err != nil {
		w.client.Remove(w.tmpPath)
		return wrapSftpErr("close", w.finalPath, err)
	}
	if err := w.client.Rename(w.tmpPath, w.finalPath); err != nil {
		w.client.Remove(w.tmpPath)
		return wrapSftpErr("rename", w.finalPath, err)
	}
	return nil
}
func (w *writeStream) Abort() error {
	w.f.Close()
	return w.client.Remove(w.tmpPath)
}

func (s *SFTP) Mkdir(ctx context.Context, p string, parents bool) error {
	var err error
	if parents {
		err = s.client.MkdirAll(s.abs(p))
	} else {
		err = s.client.Mkdir(s.abs(p))
		if os.IsExist(err) {
			err = nil
		}
	}
	return wrapSftpErr("mkdir", p, err)
}

func (s *SFTP) Delete(ctx context.Context, p string, recursive bool) error {
	if !recursive {
		return wrapSftpErr("delete", p, s.client.Remove(s.abs(p)))
	}
	return wrapSftpErr("delete", p, s.client.RemoveDirectory(s.abs(p)))
}

func (s *SFTP) Move(ctx context.Context, src, dst string) error {
	if err := s.client.MkdirAll(path.Dir(s.abs(dst))); err != nil {
		return wrapSftpErr("mkdir", dst, err)
	}
	return wrapSftpErr("move", src, s.client.Rename(s.abs(src), s.abs(dst)))
}

// Copy is unsupported: SFTP has no server-side copy primitive.
func (s *SFTP) Copy(ctx context.Context, src, dst string) error {
	return provider.ErrUnsupported
}

func (s *SFTP) SetMtime(ctx context.Context, p string, epochSeconds float64) error {
	t := time.Unix(0, int64(epochSeconds*float64(time.Second)))
	return wrapSftpErr("set_mtime", p, s.client.Chtimes(s.abs(p), t, t))
}
