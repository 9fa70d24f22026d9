package memfs

import (
	"context"
	"testing"

	"github.com/shah0006/syncd/apperr"
	"github.com/stretchr/testify/require"
)

func TestListDirNonRecursive(t *testing.T) {
	m := New("mem")
	m.PutFile("/a/f1.txt", []byte("x"), 1, "")
	m.PutFile("/a/b/f2.txt", []byte("yy"), 1, "")

	seq, err := m.ListDir(context.Background(), "/a", false)
	require.NoError(t, err)
	var paths []string
	for seq.Next(context.Background()) {
		paths = append(paths, seq.Resource().Path)
	}
	require.ElementsMatch(t, []string{"/a/f1.txt", "/a/b"}, paths)
}

func TestDeleteRecursiveRemovesSubtree(t *testing.T) {
	m := New("mem")
	m.PutFile("/a/b/f.txt", []byte("x"), 1, "")
	require.NoError(t, m.Delete(context.Background(), "/a", true))

	_, err := m.Stat(context.Background(), "/a/b/f.txt")
	require.True(t, apperr.Is(err, apperr.NotFound))
}

func TestMoveUpdatesPath(t *testing.T) {
	m := New("mem")
	m.PutFile("/src.txt", []byte("z"), 1, "")
	require.NoError(t, m.Move(context.Background(), "/src.txt", "/dir/dst.txt"))

	res, err := m.Stat(context.Background(), "/dir/dst.txt")
	require.NoError(t, err)
	require.Equal(t, "dst.txt", res.Name)

	_, err = m.Stat(context.Background(), "/src.txt")
	require.True(t, apperr.Is(err, apperr.NotFound))
}
