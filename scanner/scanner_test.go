package scanner

import (
	"context"
	"testing"

	"github.com/shah0006/syncd/provider/memfs"
	"github.com/shah0006/syncd/syncignore"
	"github.com/stretchr/testify/require"
)

// TestEmptyChain is fixture S1: a chain of nested folders with no files
// anywhere must all be reported empty, deepest first.
func TestEmptyChain(t *testing.T) {
	m := memfs.New("mem")
	m.PutDir("/a/b/c")

	res, err := Scan(context.Background(), m, "/", Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"/a/b/c", "/a/b", "/a"}, res.EmptyFolders)
}

// TestMixedSiblings is fixture S2: one sibling folder has content, the
// other doesn't; only the childless sibling (and folders with no content
// anywhere beneath them) should be reported empty.
func TestMixedSiblings(t *testing.T) {
	m := memfs.New("mem")
	m.PutFile("/root/has-content/file.txt", []byte("x"), 1, "")
	m.PutDir("/root/empty-sibling")

	res, err := Scan(context.Background(), m, "/", Options{})
	require.NoError(t, err)
	require.Contains(t, res.EmptyFolders, "/root/empty-sibling")
	require.NotContains(t, res.EmptyFolders, "/root/has-content")
	require.NotContains(t, res.EmptyFolders, "/root")
}

// TestSystemFileOnlyFolderCountsAsEmpty is fixture S3: a folder
// containing only system-junk files (e.g. .DS_Store) is still reported
// empty once ignore rules are applied.
func TestSystemFileOnlyFolderCountsAsEmpty(t *testing.T) {
	m := memfs.New("mem")
	m.PutFile("/junk/.DS_Store", []byte(""), 1, "")

	res, err := Scan(context.Background(), m, "/", Options{Ignore: syncignore.New(nil, nil)})
	require.NoError(t, err)
	require.Contains(t, res.EmptyFolders, "/junk")
	require.Equal(t, 1, res.FilesIgnored)
}

func TestConflictCopyDetected(t *testing.T) {
	m := memfs.New("mem")
	m.PutFile("/doc.txt", []byte("a"), 1, "")
	m.PutFile("/doc (conflicted copy).txt", []byte("b"), 1, "")

	res, err := Scan(context.Background(), m, "/", Options{})
	require.NoError(t, err)
	require.Len(t, res.Conflicts, 1)
	require.Equal(t, "/doc (conflicted copy).txt", res.Conflicts[0].Path)
}

// TestExcludedDirSubtreeNotCounted covers spec.md §4.3: a file nested
// under an excluded directory must not be scanned even though the
// backend's single recursive ListDir call still yields it.
func TestExcludedDirSubtreeNotCounted(t *testing.T) {
	m := memfs.New("mem")
	m.PutFile("/proj/node_modules/pkg/index.js", []byte("x"), 1, "")
	m.PutFile("/proj/src/main.go", []byte("x"), 1, "")

	res, err := Scan(context.Background(), m, "/", Options{Ignore: syncignore.New(nil, nil)})
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	require.Equal(t, "/proj/src/main.go", res.Files[0].Path)
	require.NotContains(t, res.AllFolders, "/proj/node_modules/pkg")
	require.Equal(t, 1, res.FilesIgnored)
}

func TestFolderSizesAggregateUpward(t *testing.T) {
	m := memfs.New("mem")
	m.PutFile("/a/b/f1.txt", make([]byte, 10), 1, "")
	m.PutFile("/a/f2.txt", make([]byte, 5), 1, "")

	res, err := Scan(context.Background(), m, "/", Options{})
	require.NoError(t, err)
	require.Equal(t, int64(10), res.FolderSizes["/a/b"])
	require.Equal(t, int64(15), res.FolderSizes["/a"])
}
