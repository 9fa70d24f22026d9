package executor

import (
	"context"
	"testing"

	"github.com/shah0006/syncd/model"
	"github.com/shah0006/syncd/provider/memfs"
	"github.com/stretchr/testify/require"
)

func TestRunCopiesLeftToRight(t *testing.T) {
	left := memfs.New("left")
	right := memfs.New("right")
	left.PutFile("/a.txt", []byte("hello"), 1, "")

	plan := model.NewPlan([]model.Action{
		{Kind: model.CopyLeftToRight, File: model.FileResource{Path: "/a.txt", Size: 5}},
	})
	result := Run(context.Background(), left, right, plan, Options{})
	require.Equal(t, 1, result.Succeeded)
	require.Equal(t, 0, result.Failed)

	ok, err := right.Exists(context.Background(), "/a.txt")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRunDeletesDeepestFirst(t *testing.T) {
	left := memfs.New("left")
	right := memfs.New("right")
	right.PutFile("/a/b/f.txt", []byte("x"), 1, "")
	right.PutFile("/a/g.txt", []byte("y"), 1, "")

	plan := model.NewPlan([]model.Action{
		{Kind: model.DeleteRight, File: model.FileResource{Path: "/a/g.txt"}},
		{Kind: model.DeleteRight, File: model.FileResource{Path: "/a/b/f.txt"}},
	})
	var order []string
	result := Run(context.Background(), left, right, plan, Options{Parallelism: 1, OnProgress: func(p Progress) {
		order = append(order, p.Action.File.Path)
	}})
	require.Equal(t, 2, result.Succeeded)
	require.Equal(t, []string{"/a/b/f.txt", "/a/g.txt"}, order)
}

func TestRunIndividualFailureDoesNotAbortBatch(t *testing.T) {
	left := memfs.New("left")
	right := memfs.New("right")
	left.PutFile("/exists.txt", []byte("ok"), 1, "")

	plan := model.NewPlan([]model.Action{
		{Kind: model.CopyLeftToRight, File: model.FileResource{Path: "/missing.txt"}},
		{Kind: model.CopyLeftToRight, File: model.FileResource{Path: "/exists.txt"}},
	})
	result := Run(context.Background(), left, right, plan, Options{})
	require.Equal(t, 1, result.Succeeded)
	require.Equal(t, 1, result.Failed)
}

func TestRunSkipsDeletionOfAlreadyVanishedFile(t *testing.T) {
	left := memfs.New("left")
	right := memfs.New("right")
	// Not present on right at all: fail-safe re-verification should skip
	// without treating it as a failure.
	plan := model.NewPlan([]model.Action{
		{Kind: model.DeleteRight, File: model.FileResource{Path: "/already-gone.txt"}},
	})
	result := Run(context.Background(), left, right, plan, Options{})
	require.Equal(t, 1, result.Succeeded)
	require.Equal(t, 0, result.Failed)
}

func TestRunReportsProgress(t *testing.T) {
	left := memfs.New("left")
	right := memfs.New("right")
	left.PutFile("/p1.txt", []byte("a"), 1, "")
	left.PutFile("/p2.txt", []byte("b"), 1, "")

	var updates []Progress
	plan := model.NewPlan([]model.Action{
		{Kind: model.CopyLeftToRight, File: model.FileResource{Path: "/p1.txt"}},
		{Kind: model.CopyLeftToRight, File: model.FileResource{Path: "/p2.txt"}},
	})
	Run(context.Background(), left, right, plan, Options{OnProgress: func(p Progress) {
		updates = append(updates, p)
	}})
	require.Len(t, updates, 2)
	require.Equal(t, 2, updates[len(updates)-1].Total)
}
