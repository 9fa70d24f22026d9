// Package scanner performs one recursive enumeration of a Provider tree,
// producing a model.ScanResult: every folder, the subset with direct
// file content, the empty-folder closure (deepest-first), per-ancestor
// byte totals, conflict-copy candidates and the ignored-file count.
//
// The empty-folder algorithm is the upward/sideways set-closure from
// original_source/dropbox_empty_folder_cleaner.py's find_empty_folders:
// seed folders_with_content, propagate it up to the root along each
// file's ancestor chain, then repeatedly sweep every folder pulling in
// any whose children already have content, until a fixed point. What's
// left outside that closure is empty. sync/scanner.go's WalkDir-based
// enumeration style grounds the walking/stat half of this package.
package scanner

import (
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/shah0006/syncd/hygiene"
	"github.com/shah0006/syncd/model"
	"github.com/shah0006/syncd/provider"
	"github.com/shah0006/syncd/syncignore"
)

// Options configures one scan.
type Options struct {
	Ignore *syncignore.Rules

	// ConflictPatterns feeds hygiene.NewConflictMatcher; empty uses
	// hygiene.DefaultConflictPatterns, the same default the HTTP layer's
	// hygiene.Score call assumes when a scan's conflicts have already
	// been folded in here.
	ConflictPatterns []string
}

// Scan walks root recursively via p and computes the full ScanResult.
func Scan(ctx context.Context, p provider.Provider, root string, opts Options) (model.ScanResult, error) {
	start := time.Now()
	res := model.ScanResult{
		Root:               root,
		AllFolders:         map[string]struct{}{},
		FoldersWithContent: map[string]struct{}{},
		FolderSizes:        map[string]int64{},
	}

	seq, err := p.ListDir(ctx, root, true)
	if err != nil {
		return res, err
	}
	defer seq.Close()

	matcher := hygiene.NewConflictMatcher(opts.ConflictPatterns)

	for seq.Next(ctx) {
		r := seq.Resource()
		if underExcludedDir(r.Path, opts.Ignore) {
			if r.Type != model.KindDirectory {
				res.FilesIgnored++
			}
			continue
		}
		switch r.Type {
		case model.KindDirectory:
			if opts.Ignore != nil && opts.Ignore.IsExcludedDir(r.Name) {
				continue
			}
			res.AllFolders[r.Path] = struct{}{}
		default:
			if opts.Ignore != nil && opts.Ignore.IsSystemFile(r.Name) {
				res.FilesIgnored++
				continue
			}
			if matcher.Matches(r.Name) {
				res.Conflicts = append(res.Conflicts, r)
			}
			res.Files = append(res.Files, r)
			parent := path.Dir(r.Path)
			res.FoldersWithContent[parent] = struct{}{}
			addAncestorSizes(res.FolderSizes, parent, r.Size)
		}
	}
	if err := seq.Err(); err != nil {
		return res, err
	}

	res.EmptyFolders = emptyFolderClosure(res.AllFolders, res.FoldersWithContent)
	res.ScanDurationMs = time.Since(start).Milliseconds()
	return res, nil
}

// underExcludedDir reports whether any ancestor segment of p (not p
// itself) is an excluded directory name, so a subtree like node_modules
// is never descended into in effect even though ListDir's single
// recursive call already yielded its contents.
func underExcludedDir(p string, ignore *syncignore.Rules) bool {
	if ignore == nil {
		return false
	}
	dir := path.Dir(p)
	for dir != "/" && dir != "." {
		if ignore.IsExcludedDir(path.Base(dir)) {
			return true
		}
		dir = path.Dir(dir)
	}
	return false
}

func addAncestorSizes(sizes map[string]int64, folder string, size int64) {
	for {
		sizes[folder] += size
		parent := path.Dir(folder)
		if parent == folder {
			return
		}
		folder = parent
	}
}

// emptyFolderClosure implements the seed→propagate-upward→sweep-sideways
// fixed-point algorithm, returning the empty set sorted deepest-first so
// callers can safely delete children before parents.
func emptyFolderClosure(allFolders, foldersWithContent map[string]struct{}) []string {
	hasContent := make(map[string]struct{}, len(foldersWithContent))
	for f := range foldersWithContent {
		hasContent[f] = struct{}{}
	}

	// Propagate upward: every ancestor of a folder with content also
	// counts as having content.
	for f := range foldersWithContent {
		cur := f
		for {
			hasContent[cur] = struct{}{}
			parent := path.Dir(cur)
			if parent == cur {
				break
			}
			cur = parent
		}
	}

	// Build parent -> children edges restricted to known folders.
	children := map[string][]string{}
	for f := range allFolders {
		parent := path.Dir(f)
		if _, ok := allFolders[parent]; ok {
			children[parent] = append(children[parent], f)
		}
	}

	// Sweep to a fixed point: a folder inherits content from any child
	// that already has content.
	for changed := true; changed; {
		changed = false
		for f := range allFolders {
			if _, ok := hasContent[f]; ok {
				continue
			}
			for _, c := range children[f] {
				if _, ok := hasContent[c]; ok {
					hasContent[f] = struct{}{}
					changed = true
					break
				}
			}
		}
	}

	var empty []string
	for f := range allFolders {
		if _, ok := hasContent[f]; !ok {
			empty = append(empty, f)
		}
	}
	sort.Slice(empty, func(i, j int) bool {
		di, dj := strings.Count(empty[i], "/"), strings.Count(empty[j], "/")
		if di != dj {
			return di > dj
		}
		return empty[i] < empty[j]
	})
	return empty
}
