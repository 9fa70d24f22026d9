package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shah0006/syncd/eventbus"
	"github.com/shah0006/syncd/executor"
	"github.com/shah0006/syncd/model"
	"github.com/shah0006/syncd/provider/memfs"
	"github.com/shah0006/syncd/safety"
	"github.com/shah0006/syncd/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunCopiesNewFileLeftToRight(t *testing.T) {
	left := memfs.New("left")
	right := memfs.New("right")
	left.PutFile("/new.txt", []byte("hello"), 1000, "")
	st := openTestStore(t)
	bus := eventbus.New()

	res, err := Run(context.Background(), left, right, st, bus, Options{Safety: safety.DefaultConfig()})
	require.NoError(t, err)
	require.Equal(t, 1, res.Plan.Total)
	require.Equal(t, model.CopyLeftToRight, res.Plan.Actions[0].Kind)
	require.Equal(t, 1, res.Exec.Succeeded)

	exists, err := right.Exists(context.Background(), "/new.txt")
	require.NoError(t, err)
	require.True(t, exists)

	_, ok, err := st.GetFileState(context.Background(), "/new.txt")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRunPropagatesDeletion(t *testing.T) {
	left := memfs.New("left")
	right := memfs.New("right")
	right.PutFile("/old.txt", []byte("x"), 1000, "")
	st := openTestStore(t)
	require.NoError(t, st.UpsertFileState(context.Background(), model.FileState{Path: "/old.txt", ProviderID: "synced", Size: 1}))
	bus := eventbus.New()

	res, err := Run(context.Background(), left, right, st, bus, Options{Safety: safety.DefaultConfig()})
	require.NoError(t, err)
	require.Equal(t, model.DeleteRight, res.Plan.Actions[0].Kind)

	exists, err := right.Exists(context.Background(), "/old.txt")
	require.NoError(t, err)
	require.False(t, exists)

	_, ok, err := st.GetFileState(context.Background(), "/old.txt")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRunDryRunDoesNotExecute(t *testing.T) {
	left := memfs.New("left")
	right := memfs.New("right")
	left.PutFile("/new.txt", []byte("hello"), 1000, "")
	st := openTestStore(t)
	bus := eventbus.New()

	res, err := Run(context.Background(), left, right, st, bus, Options{DryRun: true, Safety: safety.DefaultConfig()})
	require.NoError(t, err)
	require.Equal(t, 1, res.Plan.Total)

	exists, err := right.Exists(context.Background(), "/new.txt")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestRunRejectedBySafetyMonitorRecordsFailure(t *testing.T) {
	left := memfs.New("left")
	right := memfs.New("right")
	for _, p := range []string{"/canary.dat", "/a.txt", "/b.txt"} {
		right.PutFile(p, []byte("x"), 1000, "")
	}
	st := openTestStore(t)
	ctx := context.Background()
	for _, p := range []string{"/canary.dat", "/a.txt", "/b.txt"} {
		require.NoError(t, st.UpsertFileState(ctx, model.FileState{Path: p, ProviderID: "synced", Size: 1}))
	}
	bus := eventbus.New()

	_, err := Run(ctx, left, right, st, bus, Options{Safety: safety.DefaultConfig(), Exec: executor.Options{}})
	require.Error(t, err)

	runs, err := st.ListRuns(ctx, 10, 0)
	require.NoError(t, err)
	require.Equal(t, model.RunFailed, runs[0].Status)
}
