// Package s3store implements provider.Provider over an S3-compatible
// object store via the minio-go client, grounded on
// original_source/providers/s3_provider.py's key-prefix mapping (S3 has
// no real directories; a "folder" is a zero-byte key ending in "/").
package s3store

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/shah0006/syncd/apperr"
	"github.com/shah0006/syncd/model"
	"github.com/shah0006/syncd/provider"
)

func init() {
	provider.Register("s3", func(settings map[string]string) (provider.Provider, error) {
		endpoint := settings["endpoint"]
		if endpoint == "" {
			endpoint = "s3.amazonaws.com"
		}
		useSSL := settings["use_ssl"] != "false"
		client, err := minio.New(endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(settings["access_key"], settings["secret_key"], ""),
			Secure: useSSL,
			Region: settings["region"],
		})
		if err != nil {
			return nil, apperr.New(apperr.Fatal, "s3 client init failed", err)
		}
		return &S3{client: client, bucket: settings["bucket"]}, nil
	})
}

// S3 is a Provider backed by an S3-compatible bucket.
type S3 struct {
	client *minio.Client
	bucket string
}

func (s *S3) ID() string { return "s3" }

func key(path string) string { return strings.TrimPrefix(path, "/") }

func wrapMinioErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return apperr.New(apperr.NotFound, op+" "+path, err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
		return apperr.New(apperr.AuthExpired, op+" "+path, err)
	case "SlowDown", "RequestTimeTooSkewed":
		return apperr.RateLimitedWithHint(op+" "+path, err, 5)
	default:
		return apperr.New(apperr.Transient, op+" "+path, err)
	}
}

func toResource(obj minio.ObjectInfo) model.FileResource {
	p := provider.Normalize(strings.TrimSuffix(obj.Key, "/"))
	kind := model.KindFile
	if strings.HasSuffix(obj.Key, "/") {
		kind = model.KindDirectory
	}
	parts := strings.Split(strings.Trim(p, "/"), "/")
	name := parts[len(parts)-1]
	return model.FileResource{
		Path:   p,
		Name:   name,
		Type:   kind,
		Size:   obj.Size,
		Mtime:  float64(obj.LastModified.UnixNano()) / float64(time.Second),
		Chksum: strings.Trim(obj.ETag, `"`),
	}
}

type seq struct {
	ch   <-chan minio.ObjectInfo
	cur  minio.ObjectInfo
	err  error
}

func (s *seq) Next(ctx context.Context) bool {
	select {
	case obj, ok := <-s.ch:
		if !ok {
			return false
		}
		if obj.Err != nil {
			s.err = obj.Err
			return false
		}
		s.cur = obj
		return true
	case <-ctx.Done():
		s.err = ctx.Err()
		return false
	}
}

func (s *seq) Resource() model.FileResource { return toResource(s.cur) }
func (s *seq) Err() error                   { return s.err }
func (s *seq) Close() error                 { return nil }

func (s *S3) ListDir(ctx context.Context, path string, recursive bool) (provider.Sequence, error) {
	prefix := key(path)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	ch := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	})
	return &seq{ch: ch}, nil
}

func (s *S3) Stat(ctx context.Context, path string) (model.FileResource, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key(path), minio.StatObjectOptions{})
	if err != nil {
		return model.FileResource{}, wrapMinioErr("stat", path, err)
	}
	return toResource(info), nil
}

func (s *S3) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key(path), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if apperr.Is(wrapMinioErr("stat", path, err), apperr.NotFound) {
		return false, nil
	}
	return false, wrapMinioErr("stat", path, err)
}

type readCloser struct{ *minio.Object }

func (s *S3) Open(ctx context.Context, path string, mode provider.OpenMode) (io.Closer, error) {
	if mode == provider.ReadOnly {
		obj, err := s.client.GetObject(ctx, s.bucket, key(path), minio.GetObjectOptions{})
		if err != nil {
			return nil, wrapMinioErr("open", path, err)
		}
		return &readCloser{obj}, nil
	}
	return newWriter(ctx, s, path), nil
}

// writer pipes writes into PutObject running in a goroutine, since
// minio-go's upload path wants an io.Reader rather than an io.Writer.
type writer struct {
	pw     *io.PipeWriter
	done   chan error
	path   string
}

func newWriter(ctx context.Context, s *S3, path string) *writer {
	pr, pw := io.Pipe()
	w := &writer{pw: pw, done: make(chan error, 1), path: path}
	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, key(path), pr, -1, minio.PutObjectOptions{})
		pr.CloseWithError(err)
		w.done <- err
	}()
	return w
}

func (w *writer) Write(p []byte) (int, error) { return w.pw.Write(p) }

func (w *writer) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	if err := <-w.done; err != nil {
		return wrapMinioErr("put", w.path, err)
	}
	return nil
}

func (w *writer) Abort() error {
	w.pw.CloseWithError(io.ErrClosedPipe)
	<-w.done
	return nil
}

func (s *S3) Mkdir(ctx context.Context, path string, parents bool) error {
	k := key(path)
	if !strings.HasSuffix(k, "/") {
		k += "/"
	}
	_, err := s.client.PutObject(ctx, s.bucket, k, strings.NewReader(""), 0, minio.PutObjectOptions{})
	return wrapMinioErr("mkdir", path, err)
}

func (s *S3) Delete(ctx context.Context, path string, recursive bool) error {
	if !recursive {
		return wrapMinioErr("delete", path, s.client.RemoveObject(ctx, s.bucket, key(path), minio.RemoveObjectOptions{}))
	}
	prefix := key(path)
	objCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	errCh := s.client.RemoveObjects(ctx, s.bucket, objCh, minio.RemoveObjectsOptions{})
	for result := range errCh {
		if result.Err != nil {
			return wrapMinioErr("delete", path, result.Err)
		}
	}
	return nil
}

func (s *S3) Move(ctx context.Context, src, dst string) error {
	if err := s.Copy(ctx, src, dst); err != nil {
		return err
	}
	return s.Delete(ctx, src, false)
}

func (s *S3) Copy(ctx context.Context, src, dst string) error {
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: key(dst)},
		minio.CopySrcOptions{Bucket: s.bucket, Object: key(src)},
	)
	return wrapMinioErr("copy", src, err)
}

// SetMtime is a no-op: object stores don't support arbitrary mtimes
// without rewriting the object, mirroring the Python predecessor.
func (s *S3) SetMtime(ctx context.Context, path string, epochSeconds float64) error {
	return nil
}
