// Package comparator implements the human-in-the-loop two-tree diff:
// given two Providers it reports only-in-left, only-in-right and
// size-mismatched files without proposing an automatic resolution,
// leaving the caller (typically the httpapi /compare endpoints) to pick
// which results to act on.
//
// Grounded on original_source/compare_folders.py's source/dest file-set
// diff (missing_files, different_files); simplified relative to the
// three-way decision engine since there is no persisted FileState to
// disambiguate new-vs-deleted here — the comparator is an explicit,
// caller-driven review tool, not an autonomous reconciler.
package comparator

import (
	"context"
	"io"
	"strings"

	"github.com/shah0006/syncd/apperr"
	"github.com/shah0006/syncd/model"
	"github.com/shah0006/syncd/provider"
)

// Suggestion is the comparator's non-binding recommendation for a
// Mismatch entry; the caller decides whether to follow it.
type Suggestion string

const (
	SuggestMove         Suggestion = "move"
	SuggestDelete       Suggestion = "delete"
	SuggestManualReview Suggestion = "manual_review"
)

// Mismatch is one entry in a comparator report.
type Mismatch struct {
	Path       string
	Left       model.FileResource
	Right      model.FileResource
	Suggestion Suggestion
}

// Report is the complete result of comparing two trees.
type Report struct {
	OnlyInLeft      []Mismatch
	OnlyInRight     []Mismatch
	SizeMismatched  []Mismatch
}

// Compare walks both providers recursively from their respective roots
// and buckets every path into one of the three Report slices.
func Compare(ctx context.Context, left, right provider.Provider, leftRoot, rightRoot string) (Report, error) {
	leftFiles, err := collect(ctx, left, leftRoot)
	if err != nil {
		return Report{}, err
	}
	rightFiles, err := collect(ctx, right, rightRoot)
	if err != nil {
		return Report{}, err
	}

	var report Report
	for p, lf := range leftFiles {
		rf, ok := rightFiles[p]
		if !ok {
			report.OnlyInLeft = append(report.OnlyInLeft, Mismatch{Path: p, Left: lf, Suggestion: SuggestMove})
			continue
		}
		if lf.Size != rf.Size {
			report.SizeMismatched = append(report.SizeMismatched, Mismatch{Path: p, Left: lf, Right: rf, Suggestion: SuggestManualReview})
		}
	}
	for p, rf := range rightFiles {
		if _, ok := leftFiles[p]; !ok {
			report.OnlyInRight = append(report.OnlyInRight, Mismatch{Path: p, Right: rf, Suggestion: SuggestDelete})
		}
	}
	return report, nil
}

func collect(ctx context.Context, p provider.Provider, root string) (map[string]model.FileResource, error) {
	seq, err := p.ListDir(ctx, root, true)
	if err != nil {
		return nil, err
	}
	defer seq.Close()

	out := map[string]model.FileResource{}
	for seq.Next(ctx) {
		r := seq.Resource()
		if r.Type == model.KindDirectory {
			continue
		}
		rel := strings.TrimPrefix(r.Path, strings.TrimSuffix(root, "/"))
		out[rel] = r
	}
	return out, seq.Err()
}

// Execute runs the caller-selected subset of a Report's entries:
// OnlyInLeft moves get copied right then deleted left, OnlyInRight
// entries get deleted right. The indices refer to positions within the
// Report's own slices.
func Execute(ctx context.Context, left, right provider.Provider, report Report, onlyInLeftIdx, onlyInRightIdx []int) []error {
	var errs []error
	for _, i := range onlyInLeftIdx {
		if i < 0 || i >= len(report.OnlyInLeft) {
			continue
		}
		m := report.OnlyInLeft[i]
		if err := copyThenDelete(ctx, left, right, m.Path); err != nil {
			errs = append(errs, err)
		}
	}
	for _, i := range onlyInRightIdx {
		if i < 0 || i >= len(report.OnlyInRight) {
			continue
		}
		m := report.OnlyInRight[i]
		if err := right.Delete(ctx, m.Path, false); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// copyThenDelete streams path from src to dst across providers (Copy is
// same-backend only, per the Provider contract) then removes it from
// src, completing the suggested "move" for an only-in-left entry.
func copyThenDelete(ctx context.Context, src, dst provider.Provider, path string) error {
	srcStream, err := src.Open(ctx, path, provider.ReadOnly)
	if err != nil {
		return err
	}
	defer srcStream.Close()
	reader, ok := srcStream.(io.Reader)
	if !ok {
		return apperr.New(apperr.Fatal, "source stream is not readable: "+path, nil)
	}

	dstStream, err := dst.Open(ctx, path, provider.WriteOnly)
	if err != nil {
		return err
	}
	writer, ok := dstStream.(io.Writer)
	if !ok {
		dstStream.Close()
		return apperr.New(apperr.Fatal, "destination stream is not writable: "+path, nil)
	}
	if _, err := io.Copy(writer, reader); err != nil {
		dstStream.Close()
		return apperr.New(apperr.Transient, "move copy failed: "+path, err)
	}
	if err := dstStream.Close(); err != nil {
		return apperr.New(apperr.Transient, "move finalize failed: "+path, err)
	}

	return src.Delete(ctx, path, false)
}
