// Package provider defines the uniform file-tree capability set
// (spec.md §4.1) that every storage backend implements, and a registry
// keyed by the config "mode" value so the rest of the engine never
// branches on backend identity.
//
// Deep polymorphism in the Python predecessor (providers/interface.py's
// IFileProvider abstract base, one subclass per backend) becomes a Go
// interface here; all algorithmic code (scanner, decision engine,
// executor) is written entirely against Provider.
package provider

import (
	"context"
	"io"

	"github.com/shah0006/syncd/model"
)

// OpenMode selects read or write when opening a stream.
type OpenMode int

const (
	ReadOnly OpenMode = iota
	WriteOnly
)

// ReadStream is a readable byte stream bound to one open file.
type ReadStream interface {
	io.ReadCloser
}

// WriteStream is a writable byte stream whose contents become the file
// only on a successful Close; Abort discards partial output on any
// exit path that isn't a clean Close (cancellation, write error).
type WriteStream interface {
	io.WriteCloser
	Abort() error
}

// Provider is the capability set every backend implements (spec.md §4.1).
// Every method takes a context so blocking network I/O is cancellable at
// the suspension points spec.md §5 requires.
type Provider interface {
	// ID names the backend for logging and FileState.ProviderID.
	ID() string

	// ListDir returns a lazy sequence of every entry under path. When
	// recursive is set every descendant is enumerated; order is
	// unspecified but stable within one call. A missing root yields an
	// empty sequence, not an error. The returned Sequence must be
	// drained or closed by the caller.
	ListDir(ctx context.Context, path string, recursive bool) (Sequence, error)

	// Stat returns the resource at path, or an apperr.NotFound error.
	Stat(ctx context.Context, path string) (model.FileResource, error)

	// Exists is a convenience wrapper around Stat.
	Exists(ctx context.Context, path string) (bool, error)

	// Open returns a stream bound to path in the given mode.
	Open(ctx context.Context, path string, mode OpenMode) (io.Closer, error)

	// Mkdir creates path; a no-op if it already exists. When parents is
	// set, intermediate directories are created as needed.
	Mkdir(ctx context.Context, path string, parents bool) error

	// Delete removes path. For directories, recursive controls whether
	// non-empty content is permitted.
	Delete(ctx context.Context, path string, recursive bool) error

	// Move renames/relocates src to dst server-side. Returns
	// ErrUnsupported (unwrapped) when the backend can't do this without
	// streaming through the caller.
	Move(ctx context.Context, src, dst string) error

	// Copy duplicates src to dst within the same backend, server-side
	// when supported. Same unsupported convention as Move.
	Copy(ctx context.Context, src, dst string) error

	// SetMtime is best-effort; a no-op when the backend can't represent
	// arbitrary modification times.
	SetMtime(ctx context.Context, path string, epochSeconds float64) error
}

// Sequence is a finite, lazily-produced stream of FileResource values
// hiding any backend pagination cursor from the consumer.
type Sequence interface {
	// Next advances to the next resource. Returns false when the
	// sequence is exhausted or ctx was cancelled; callers must then
	// check Err.
	Next(ctx context.Context) bool
	Resource() model.FileResource
	Err() error
	Close() error
}

// Opener constructs a Provider from a config-derived settings map; every
// backend package registers one under its mode name.
type Opener func(settings map[string]string) (Provider, error)

var registry = map[string]Opener{}

// Register associates a mode name (e.g. "local", "s3", "sftp", "webdav",
// "azure") with a constructor. Backend packages call this from an init().
func Register(mode string, open Opener) {
	registry[mode] = open
}

// Open constructs the Provider for the given mode.
func Open(mode string, settings map[string]string) (Provider, error) {
	open, ok := registry[mode]
	if !ok {
		return nil, &unsupportedModeError{mode: mode}
	}
	return open(settings)
}

type unsupportedModeError struct{ mode string }

func (e *unsupportedModeError) Error() string { return "provider: unsupported mode " + e.mode }

// ErrUnsupported is returned by Move/Copy implementations that cannot
// perform the operation server-side. Nothing in this module calls Move or
// Copy; the executor and comparator always stream through Open.
var ErrUnsupported = unsupportedOpError{}

type unsupportedOpError struct{}

func (unsupportedOpError) Error() string { return "provider: operation not supported server-side" }
