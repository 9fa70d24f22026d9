package comparator

import (
	"context"
	"testing"

	"github.com/shah0006/syncd/provider/memfs"
	"github.com/stretchr/testify/require"
)

func TestCompareBucketsEntries(t *testing.T) {
	left := memfs.New("left")
	right := memfs.New("right")

	left.PutFile("/only-left.txt", []byte("a"), 1, "")
	right.PutFile("/only-right.txt", []byte("b"), 1, "")
	left.PutFile("/same.txt", []byte("xx"), 1, "")
	right.PutFile("/same.txt", []byte("xx"), 1, "")
	left.PutFile("/diff-size.txt", []byte("x"), 1, "")
	right.PutFile("/diff-size.txt", []byte("xxxxx"), 1, "")

	report, err := Compare(context.Background(), left, right, "/", "/")
	require.NoError(t, err)
	require.Len(t, report.OnlyInLeft, 1)
	require.Equal(t, "/only-left.txt", report.OnlyInLeft[0].Path)
	require.Len(t, report.OnlyInRight, 1)
	require.Equal(t, "/only-right.txt", report.OnlyInRight[0].Path)
	require.Len(t, report.SizeMismatched, 1)
	require.Equal(t, "/diff-size.txt", report.SizeMismatched[0].Path)
}

func TestExecuteMovesOnlyInLeft(t *testing.T) {
	left := memfs.New("left")
	right := memfs.New("right")
	left.PutFile("/move-me.txt", []byte("payload"), 1, "")

	report, err := Compare(context.Background(), left, right, "/", "/")
	require.NoError(t, err)
	require.Len(t, report.OnlyInLeft, 1)

	errs := Execute(context.Background(), left, right, report, []int{0}, nil)
	require.Empty(t, errs)

	existsRight, _ := right.Exists(context.Background(), "/move-me.txt")
	require.True(t, existsRight)
	existsLeft, _ := left.Exists(context.Background(), "/move-me.txt")
	require.False(t, existsLeft)
}

func TestExecuteDeletesOnlyInRight(t *testing.T) {
	left := memfs.New("left")
	right := memfs.New("right")
	right.PutFile("/stale.txt", []byte("x"), 1, "")

	report, err := Compare(context.Background(), left, right, "/", "/")
	require.NoError(t, err)

	errs := Execute(context.Background(), left, right, report, nil, []int{0})
	require.Empty(t, errs)

	exists, _ := right.Exists(context.Background(), "/stale.txt")
	require.False(t, exists)
}
