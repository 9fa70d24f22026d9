// Package executor runs a Plan's actions against the left and right
// Providers through a bounded worker pool, with optional zstd
// compression of copies (Options.Compress), progress
// telemetry, deepest-first deletion ordering, and per-action fail-safe
// re-verification before deletes.
//
// Grounded on original_source/core/transfer.py's TransferManager (thread
// pool + zstd compressor wrapping the destination stream) and
// sync/daemon.go's worker-loop idiom (busy flag, retry-after-delay,
// individual failures never aborting the batch).
package executor

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shah0006/syncd/apperr"
	"github.com/shah0006/syncd/model"
	"github.com/shah0006/syncd/provider"
	"github.com/shah0006/syncd/safety"
	"github.com/shah0006/syncd/syncignore"
)

// Options configures one execution run.
type Options struct {
	Parallelism int  // default 5, per original_source/core/transfer.py
	Compress    bool // zstd-compress every copy; ".zst" is appended to the dst name if missing
	OnProgress  func(Progress)

	// RateLimit caps the number of actions started per second, 0 means
	// unlimited. Useful against cloud providers (S3, Azure, WebDAV-fronted
	// Dropbox/Google) that throttle or bill per API call.
	RateLimit float64

	// Ignore feeds the pre-delete fail-safe re-list (safety.VerifyStillPresent)
	// so newly-appeared system files don't themselves block a folder
	// deletion. A nil value disables ignore filtering there, not the
	// fail-safe itself.
	Ignore *syncignore.Rules
}

// Progress is emitted after each action completes.
type Progress struct {
	Current        int
	Total          int
	BytesTransferred int64
	BytesPerSecond float64
	Action         model.Action
	Err            error
}

// Result summarizes one execution run.
type Result struct {
	Succeeded int
	Failed    int
	Errors    []error
}

// Run executes plan's actions against left/right. Deletions are ordered
// deepest-first among themselves so a directory's children are removed
// before the directory; an individual action's failure is recorded but
// never aborts the remaining batch, matching sync/daemon.go's
// "processed++ regardless" loop.
func Run(ctx context.Context, left, right provider.Provider, plan model.Plan, opts Options) Result {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 5
	}

	actions := orderForExecution(plan.Actions)
	total := len(actions)

	var result Result
	resultsCh := make(chan Progress, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	start := time.Now()
	var bytesDone int64
	var completed int

	for _, a := range actions {
		a := a
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					return err
				}
			}
			n, err := execute(gctx, left, right, a, opts.Compress, opts.Ignore)
			resultsCh <- Progress{Action: a, Err: err, BytesTransferred: n}
			return nil // individual action failures don't cancel the group
		})
	}

	go func() {
		g.Wait()
		close(resultsCh)
	}()

	for p := range resultsCh {
		completed++
		bytesDone += p.BytesTransferred
		elapsed := time.Since(start).Seconds()
		p.Current = completed
		p.Total = total
		if elapsed > 0 {
			p.BytesPerSecond = float64(bytesDone) / elapsed
		}
		if p.Err != nil {
			result.Failed++
			result.Errors = append(result.Errors, p.Err)
		} else {
			result.Succeeded++
		}
		if opts.OnProgress != nil {
			opts.OnProgress(p)
		}
	}

	return result
}

// orderForExecution keeps copies and conflicts in their original order
// but sorts deletions among themselves deepest-path-first, so a
// directory's children are deleted before the directory itself.
func orderForExecution(actions []model.Action) []model.Action {
	out := make([]model.Action, len(actions))
	copy(out, actions)
	var slots []int
	var dels []model.Action
	for i, a := range out {
		if a.Kind.IsDeletion() {
			slots = append(slots, i)
			dels = append(dels, a)
		}
	}
	sort.SliceStable(dels, func(i, j int) bool {
		return strings.Count(dels[i].File.Path, "/") > strings.Count(dels[j].File.Path, "/")
	})
	for k, i := range slots {
		out[i] = dels[k]
	}
	return out
}

func execute(ctx context.Context, left, right provider.Provider, a model.Action, compress bool, ignore *syncignore.Rules) (int64, error) {
	switch a.Kind {
	case model.CopyLeftToRight:
		return copyFile(ctx, left, right, a.File.Path, compress)
	case model.CopyRightToLeft:
		return copyFile(ctx, right, left, a.File.Path, compress)
	case model.DeleteLeft:
		return 0, deleteWithFailsafe(ctx, left, a.File, ignore)
	case model.DeleteRight:
		return 0, deleteWithFailsafe(ctx, right, a.File, ignore)
	case model.ActionConflict, model.ActionSkip:
		return 0, nil
	default:
		return 0, apperr.New(apperr.Fatal, "unknown action kind "+string(a.Kind), nil)
	}
}

func deleteWithFailsafe(ctx context.Context, p provider.Provider, file model.FileResource, ignore *syncignore.Rules) error {
	stillPresent, err := safety.VerifyStillPresent(ctx, p, file, ignore)
	if err != nil {
		return err
	}
	if !stillPresent {
		return nil
	}
	recursive := file.Type == model.KindDirectory
	return p.Delete(ctx, file.Path, recursive)
}

func copyFile(ctx context.Context, src, dst provider.Provider, path string, compress bool) (int64, error) {
	srcStream, err := src.Open(ctx, path, provider.ReadOnly)
	if err != nil {
		return 0, err
	}
	defer srcStream.Close()
	reader, ok := srcStream.(io.Reader)
	if !ok {
		return 0, apperr.New(apperr.Fatal, "source stream is not readable: "+path, nil)
	}

	dstPath := path
	if compress && !strings.HasSuffix(dstPath, ".zst") {
		dstPath += ".zst"
	}

	dstStream, err := dst.Open(ctx, dstPath, provider.WriteOnly)
	if err != nil {
		return 0, err
	}

	type aborter interface{ Abort() error }
	writer, ok := dstStream.(io.Writer)
	if !ok {
		dstStream.Close()
		return 0, apperr.New(apperr.Fatal, "destination stream is not writable: "+dstPath, nil)
	}

	var n int64
	if compress {
		zw, zerr := zstd.NewWriter(writer, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(3)))
		if zerr != nil {
			dstStream.Close()
			return 0, apperr.New(apperr.Fatal, "zstd writer init failed", zerr)
		}
		n, err = io.Copy(zw, reader)
		if closeErr := zw.Close(); err == nil {
			err = closeErr
		}
	} else {
		n, err = io.Copy(writer, reader)
	}

	if err != nil {
		if ab, ok := dstStream.(aborter); ok {
			ab.Abort()
		} else {
			dstStream.Close()
		}
		return n, apperr.New(apperr.Transient, "copy failed: "+path, err)
	}

	if closeErr := dstStream.Close(); closeErr != nil {
		return n, apperr.New(apperr.Transient, "copy finalize failed: "+dstPath, closeErr)
	}
	return n, nil
}
