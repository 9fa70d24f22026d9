package store

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/shah0006/syncd/model"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndGetFileState(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	fs := model.FileState{Path: "/a/b.txt", ProviderID: "local", Size: 10, Mtime: 100, Checksum: "abc"}
	require.NoError(t, s.UpsertFileState(ctx, fs))

	got, ok, err := s.GetFileState(ctx, "/a/b.txt")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, fs.Checksum, got.Checksum)

	fs.Checksum = "def"
	require.NoError(t, s.UpsertFileState(ctx, fs))
	got, ok, err = s.GetFileState(ctx, "/a/b.txt")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "def", got.Checksum)
}

func TestGetFileStateMissing(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.GetFileState(context.Background(), "/missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.StartRun(ctx)
	require.NoError(t, err)
	require.NoError(t, s.EndRun(ctx, id, model.RunSuccess, 42))

	runs, err := s.ListRuns(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, model.RunSuccess, runs[0].Status)
	require.Equal(t, 42, runs[0].FilesProcessed)
}

// TestConcurrentUpserts exercises the S8 concurrent-upserts fixture: four
// writers each upserting fifty distinct paths through the single-writer
// goroutine must never error and must leave all two hundred rows intact.
func TestConcurrentUpserts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	const writers = 4
	const perWriter = 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				path := filepath.Join("/w", string(rune('A'+w)), strconv.Itoa(i))
				err := s.UpsertFileState(ctx, model.FileState{
					Path: path, ProviderID: "local", Size: int64(i), Mtime: float64(i),
				})
				require.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < writers; w++ {
		for i := 0; i < perWriter; i++ {
			got, ok, err := s.GetFileState(ctx, filepath.Join("/w", string(rune('A'+w)), strconv.Itoa(i)))
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, int64(i), got.Size)
		}
	}
}

func TestDeleteFileState(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertFileState(ctx, model.FileState{Path: "/x", ProviderID: "local"}))
	require.NoError(t, s.DeleteFileState(ctx, "/x"))

	_, ok, err := s.GetFileState(ctx, "/x")
	require.NoError(t, err)
	require.False(t, ok)
}
