// Package azureblob implements provider.Provider over Azure Blob
// Storage, the counterpart of provider/s3store for Azure-hosted trees.
// Grounded on the same key-prefix-as-directory model
// original_source/providers/s3_provider.py uses for S3.
package azureblob

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/shah0006/syncd/apperr"
	"github.com/shah0006/syncd/model"
	"github.com/shah0006/syncd/provider"
)

func init() {
	provider.Register("azure", func(settings map[string]string) (provider.Provider, error) {
		client, err := azblob.NewClientFromConnectionString(settings["connection_string"], nil)
		if err != nil {
			return nil, apperr.New(apperr.Fatal, "azure client init failed", err)
		}
		return &Azure{client: client, containerName: settings["container"]}, nil
	})
}

// Azure is a Provider backed by one blob container.
type Azure struct {
	client        *azblob.Client
	containerName string
}

func (a *Azure) ID() string { return "azure" }

func key(path string) string { return strings.TrimPrefix(path, "/") }

func wrapAzureErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "BlobNotFound") || strings.Contains(msg, "ContainerNotFound"):
		return apperr.New(apperr.NotFound, op+" "+path, err)
	case strings.Contains(msg, "AuthenticationFailed") || strings.Contains(msg, "AuthorizationFailure"):
		return apperr.New(apperr.AuthExpired, op+" "+path, err)
	case strings.Contains(msg, "ServerBusy") || strings.Contains(msg, "429"):
		return apperr.RateLimitedWithHint(op+" "+path, err, 5)
	default:
		return apperr.New(apperr.Transient, op+" "+path, err)
	}
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

func (a *Azure) ListDir(ctx context.Context, path string, recursive bool) (provider.Sequence, error) {
	prefix := key(path)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	var delim *string
	if !recursive {
		d := "/"
		delim = &d
	}
	var items []model.FileResource
	pager := a.client.NewListBlobsFlatPager(a.containerName, &container.ListBlobsFlatOptions{
		Prefix: &prefix,
	})
	_ = delim // hierarchical listing needs NewListBlobsHierarchyPager; flat + client-side filter keeps one code path
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, wrapAzureErr("list_dir", path, err)
		}
		for _, blob := range page.Segment.BlobItems {
			p := provider.Normalize(strings.TrimSuffix(*blob.Name, "/"))
			if !recursive {
				rest := strings.TrimPrefix(*blob.Name, prefix)
				if strings.Contains(strings.TrimSuffix(rest, "/"), "/") {
					continue
				}
			}
			parts := strings.Split(strings.Trim(p, "/"), "/")
			var size int64
			var mtime float64
			var etag string
			if blob.Properties != nil {
				if blob.Properties.ContentLength != nil {
					size = *blob.Properties.ContentLength
				}
				if blob.Properties.LastModified != nil {
					mtime = float64(blob.Properties.LastModified.UnixNano()) / float64(time.Second)
				}
				if blob.Properties.ETag != nil {
					etag = string(*blob.Properties.ETag)
				}
			}
			items = append(items, model.FileResource{
				Path: p, Name: parts[len(parts)-1], Type: model.KindFile,
				Size: size, Mtime: mtime, Chksum: etag,
			})
		}
	}
	return &seq{items: items}, nil
}

func (a *Azure) Stat(ctx context.Context, path string) (model.FileResource, error) {
	props, err := a.client.ServiceClient().NewContainerClient(a.containerName).
		NewBlobClient(key(path)).GetProperties(ctx, nil)
	if err != nil {
		return model.FileResource{}, wrapAzureErr("stat", path, err)
	}
	var size int64
	if props.ContentLength != nil {
		size = *props.ContentLength
	}
	var mtime float64
	if props.LastModified != nil {
		mtime = float64(props.LastModified.UnixNano()) / float64(time.Second)
	}
	normalized := provider.Normalize(path)
	return model.FileResource{
		Path: normalized, Name: normalized[strings.LastIndex(normalized, "/")+1:], Type: model.KindFile, Size: size, Mtime: mtime,
	}, nil
}

func (a *Azure) Exists(ctx context.Context, path string) (bool, error) {
	_, err := a.Stat(ctx, path)
	if err == nil {
		return true, nil
	}
	if apperr.Is(err, apperr.NotFound) {
		return false, nil
	}
	return false, err
}

type readCloser struct{ io.ReadCloser }

func (a *Azure) Open(ctx context.Context, path string, mode provider.OpenMode) (io.Closer, error) {
	if mode == provider.ReadOnly {
		resp, err := a.client.DownloadStream(ctx, a.containerName, key(path), nil)
		if err != nil {
			return nil, wrapAzureErr("open", path, err)
		}
		return &readCloser{resp.Body}, nil
	}
	return &writer{a: a, path: path}, nil
}

type writer struct {
	a    *Azure
	path string
	buf  bytes.Buffer
}

func (w *writer) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *writer) Close() error {
	_, err := w.a.client.UploadBuffer(context.Background(), w.a.containerName, key(w.path), w.buf.Bytes(), nil)
	return wrapAzureErr("put", w.path, err)
}

func (w *writer) Abort() error { w.buf.Reset(); return nil }

// Mkdir is a no-op: Azure Blob has no directory object, only key prefixes.
func (a *Azure) Mkdir(ctx context.Context, path string, parents bool) error { return nil }

func (a *Azure) Delete(ctx context.Context, path string, recursive bool) error {
	if !recursive {
		_, err := a.client.DeleteBlob(ctx, a.containerName, key(path), nil)
		return wrapAzureErr("delete", path, err)
	}
	seq, err := a.ListDir(ctx, path, true)
	if err != nil {
		return err
	}
	for seq.Next(ctx) {
		if _, err := a.client.DeleteBlob(ctx, a.containerName, key(seq.Resource().Path), nil); err != nil {
			return wrapAzureErr("delete", seq.Resource().Path, err)
		}
	}
	return nil
}

func (a *Azure) Move(ctx context.Context, src, dst string) error {
	if err := a.Copy(ctx, src, dst); err != nil {
		return err
	}
	return a.Delete(ctx, src, false)
}

func (a *Azure) Copy(ctx context.Context, src, dst string) error {
	srcURL := a.client.ServiceClient().NewContainerClient(a.containerName).NewBlobClient(key(src)).URL()
	_, err := a.client.ServiceClient().NewContainerClient(a.containerName).
		NewBlobClient(key(dst)).StartCopyFromURL(ctx, srcURL, &azblob.StartCopyFromURLOptions{Metadata: map[string]*string{"source": to.Ptr(srcURL)}})
	return wrapAzureErr("copy", src, err)
}

// SetMtime is a no-op: blob properties don't expose a settable mtime.
func (a *Azure) SetMtime(ctx context.Context, path string, epochSeconds float64) error {
	return nil
}
