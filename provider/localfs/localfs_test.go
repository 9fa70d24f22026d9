package localfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shah0006/syncd/apperr"
	"github.com/shah0006/syncd/provider"
	"github.com/stretchr/testify/require"
)

func TestListDirRecursive(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "f.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b", "g.txt"), []byte("yy"), 0o644))

	l := New(root)
	seq, err := l.ListDir(context.Background(), "/", true)
	require.NoError(t, err)
	defer seq.Close()

	var paths []string
	for seq.Next(context.Background()) {
		paths = append(paths, seq.Resource().Path)
	}
	require.NoError(t, seq.Err())
	require.ElementsMatch(t, []string{"/a", "/a/b", "/a/f.txt", "/a/b/g.txt"}, paths)
}

func TestStatNotFound(t *testing.T) {
	l := New(t.TempDir())
	_, err := l.Stat(context.Background(), "/missing")
	require.True(t, apperr.Is(err, apperr.NotFound))
}

func TestOpenWriteThenReadRoundtrip(t *testing.T) {
	l := New(t.TempDir())
	w, err := l.Open(context.Background(), "/nested/file.txt", provider.WriteOnly)
	require.NoError(t, err)
	ws := w.(interface {
		Write([]byte) (int, error)
		Close() error
	})
	_, err = ws.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, ws.Close())

	r, err := l.Open(context.Background(), "/nested/file.txt", provider.ReadOnly)
	require.NoError(t, err)
	defer r.Close()

	res, err := l.Stat(context.Background(), "/nested/file.txt")
	require.NoError(t, err)
	require.Equal(t, int64(5), res.Size)
}

func TestOpenWriteAbortLeavesNoFinalFile(t *testing.T) {
	l := New(t.TempDir())
	w, err := l.Open(context.Background(), "/partial.txt", provider.WriteOnly)
	require.NoError(t, err)
	ws := w.(*writeStream)
	_, err = ws.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, ws.Abort())

	exists, err := l.Exists(context.Background(), "/partial.txt")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestCopyUnsupported(t *testing.T) {
	l := New(t.TempDir())
	err := l.Copy(context.Background(), "/a", "/b")
	require.ErrorIs(t, err, provider.ErrUnsupported)
}

func TestMoveCreatesParentDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "src.txt"), []byte("z"), 0o644))
	l := New(root)
	require.NoError(t, l.Move(context.Background(), "/src.txt", "/deep/dst.txt"))

	exists, err := l.Exists(context.Background(), "/deep/dst.txt")
	require.NoError(t, err)
	require.True(t, exists)
}
