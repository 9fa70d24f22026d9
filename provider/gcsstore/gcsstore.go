// Package gcsstore implements provider.Provider over a Google Cloud
// Storage bucket, grounded on the same key-prefix mapping s3store uses
// (original_source/providers/s3_provider.py: GCS has no real
// directories either, a "folder" is a zero-byte object ending in "/").
// Registered under mode "gcs", distinct from the webdavfs-fronted
// "google" mode which talks to Google Drive rather than a GCS bucket.
package gcsstore

import (
	"context"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/shah0006/syncd/apperr"
	"github.com/shah0006/syncd/model"
	"github.com/shah0006/syncd/provider"
)

func init() {
	provider.Register("gcs", func(settings map[string]string) (provider.Provider, error) {
		ctx := context.Background()
		var opts []option.ClientOption
		if keyFile := settings["credentials_file"]; keyFile != "" {
			opts = append(opts, option.WithCredentialsFile(keyFile))
		}
		client, err := storage.NewClient(ctx, opts...)
		if err != nil {
			return nil, apperr.New(apperr.Fatal, "gcs client init failed", err)
		}
		return &GCS{bucket: client.Bucket(settings["bucket"])}, nil
	})
}

// GCS is a Provider backed by a single Cloud Storage bucket.
type GCS struct {
	bucket *storage.BucketHandle
}

func (g *GCS) ID() string { return "gcs" }

func key(path string) string { return strings.TrimPrefix(path, "/") }

func wrapGCSErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if err == storage.ErrObjectNotExist {
		return apperr.New(apperr.NotFound, op+" "+path, err)
	}
	return apperr.New(apperr.Transient, op+" "+path, err)
}

func toResource(attrs *storage.ObjectAttrs) model.FileResource {
	p := provider.Normalize(strings.TrimSuffix(attrs.Name, "/"))
	kind := model.KindFile
	if strings.HasSuffix(attrs.Name, "/") {
		kind = model.KindDirectory
	}
	parts := strings.Split(strings.Trim(p, "/"), "/")
	name := parts[len(parts)-1]
	return model.FileResource{
		Path:   p,
		Name:   name,
		Type:   kind,
		Size:   attrs.Size,
		Mtime:  float64(attrs.Updated.UnixNano()) / float64(time.Second),
		Chksum: md5Hex(attrs.MD5),
	}
}

// md5Hex renders the object's MD5 digest as hex, matching the hex
// checksum shape s3store derives from an S3 ETag.
func md5Hex(sum []byte) string {
	const hex = "0123456789abcdef"
	out := make([]byte, len(sum)*2)
	for i, b := range sum {
		out[i*2] = hex[b>>4]
		out[i*2+1] = hex[b&0x0f]
	}
	return string(out)
}

type seq struct {
	it  *storage.ObjectIterator
	cur *storage.ObjectAttrs
	err error
}

func (s *seq) Next(ctx context.Context) bool {
	attrs, err := s.it.Next()
	if err == iterator.Done {
		return false
	}
	if err != nil {
		s.err = err
		return false
	}
	s.cur = attrs
	return true
}

func (s *seq) Resource() model.FileResource { return toResource(s.cur) }
func (s *seq) Err() error                   { return s.err }
func (s *seq) Close() error                 { return nil }

func (g *GCS) ListDir(ctx context.Context, path string, recursive bool) (provider.Sequence, error) {
	prefix := key(path)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	query := &storage.Query{Prefix: prefix}
	if !recursive {
		query.Delimiter = "/"
	}
	return &seq{it: g.bucket.Objects(ctx, query)}, nil
}

func (g *GCS) Stat(ctx context.Context, path string) (model.FileResource, error) {
	attrs, err := g.bucket.Object(key(path)).Attrs(ctx)
	if err != nil {
		return model.FileResource{}, wrapGCSErr("stat", path, err)
	}
	return toResource(attrs), nil
}

func (g *GCS) Exists(ctx context.Context, path string) (bool, error) {
	_, err := g.bucket.Object(key(path)).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if err == storage.ErrObjectNotExist {
		return false, nil
	}
	return false, wrapGCSErr("stat", path, err)
}

func (g *GCS) Open(ctx context.Context, path string, mode provider.OpenMode) (io.Closer, error) {
	obj := g.bucket.Object(key(path))
	if mode == provider.ReadOnly {
		r, err := obj.NewReader(ctx)
		if err != nil {
			return nil, wrapGCSErr("open", path, err)
		}
		return r, nil
	}
	return &writer{Writer: obj.NewWriter(ctx), path: path}, nil
}

type writer struct {
	*storage.Writer
	path string
}

func (w *writer) Close() error {
	if err := w.Writer.Close(); err != nil {
		return wrapGCSErr("put", w.path, err)
	}
	return nil
}

func (w *writer) Abort() error {
	return w.Writer.CloseWithError(io.ErrClosedPipe)
}

func (g *GCS) Mkdir(ctx context.Context, path string, parents bool) error {
	k := key(path)
	if !strings.HasSuffix(k, "/") {
		k += "/"
	}
	wr := g.bucket.Object(k).NewWriter(ctx)
	if err := wr.Close(); err != nil {
		return wrapGCSErr("mkdir", path, err)
	}
	return nil
}

func (g *GCS) Delete(ctx context.Context, path string, recursive bool) error {
	if !recursive {
		return wrapGCSErr("delete", path, g.bucket.Object(key(path)).Delete(ctx))
	}
	prefix := key(path)
	it := g.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return wrapGCSErr("delete", path, err)
		}
		if err := g.bucket.Object(attrs.Name).Delete(ctx); err != nil {
			return wrapGCSErr("delete", attrs.Name, err)
		}
	}
}

func (g *GCS) Move(ctx context.Context, src, dst string) error {
	if err := g.Copy(ctx, src, dst); err != nil {
		return err
	}
	return g.Delete(ctx, src, false)
}

func (g *GCS) Copy(ctx context.Context, src, dst string) error {
	srcObj := g.bucket.Object(key(src))
	dstObj := g.bucket.Object(key(dst))
	_, err := dstObj.CopierFrom(srcObj).Run(ctx)
	return wrapGCSErr("copy", src, err)
}

// SetMtime is a no-op: GCS objects don't support an arbitrary
// user-settable modification time, mirroring s3store's same limitation.
func (g *GCS) SetMtime(ctx context.Context, path string, epochSeconds float64) error {
	return nil
}
