package safety

import (
	"context"
	"testing"

	"github.com/shah0006/syncd/apperr"
	"github.com/shah0006/syncd/model"
	"github.com/shah0006/syncd/provider/memfs"
	"github.com/shah0006/syncd/syncignore"
	"github.com/stretchr/testify/require"
)

func plan(actions ...model.Action) model.Plan {
	return model.NewPlan(actions)
}

func TestCanaryFileTriggersAbsoluteRejection(t *testing.T) {
	m := New(DefaultConfig())
	p := plan(model.Action{Kind: model.DeleteLeft, File: model.FileResource{Path: "/a/.sys_canary"}})
	err := m.AnalyzePlan(p)
	require.True(t, apperr.Is(err, apperr.Safety))
}

// TestDeletionThresholdIsConjunctive is fixture S7: both count and
// percent must exceed their limits before the plan is rejected; one
// alone is not sufficient.
func TestDeletionThresholdIsConjunctive(t *testing.T) {
	cfg := Config{MaxDeletionsCount: 2, MaxDeletionsPercent: 90}
	m := New(cfg)

	// Count exceeded (3 > 2) but percent (3/3=100% > 90) also exceeded: reject.
	actions := []model.Action{
		{Kind: model.DeleteLeft, File: model.FileResource{Path: "/a"}},
		{Kind: model.DeleteLeft, File: model.FileResource{Path: "/b"}},
		{Kind: model.DeleteRight, File: model.FileResource{Path: "/c"}},
	}
	err := m.AnalyzePlan(plan(actions...))
	require.True(t, apperr.Is(err, apperr.Safety))

	// Count exceeded but percent within bound (3 deletions out of 100 actions = 3%): allow.
	var bulk []model.Action
	for i := 0; i < 97; i++ {
		bulk = append(bulk, model.Action{Kind: model.ActionSkip})
	}
	bulk = append(bulk, actions...)
	require.NoError(t, m.AnalyzePlan(plan(bulk...)))
}

func TestWithinThresholdsPasses(t *testing.T) {
	m := New(DefaultConfig())
	p := plan(model.Action{Kind: model.DeleteLeft, File: model.FileResource{Path: "/a"}})
	require.NoError(t, m.AnalyzePlan(p))
}

func TestVerifyStillPresentDetectsVanishedFile(t *testing.T) {
	mem := memfs.New("mem")
	mem.PutFile("/will-vanish.txt", []byte("x"), 1, "")
	file := model.FileResource{Path: "/will-vanish.txt", Type: model.KindFile}

	ok, err := VerifyStillPresent(context.Background(), mem, file, nil)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, mem.Delete(context.Background(), "/will-vanish.txt", false))

	ok, err = VerifyStillPresent(context.Background(), mem, file, nil)
	require.NoError(t, err)
	require.False(t, ok)
}

// TestVerifyStillPresentFailsafeTripsOnNewContent covers spec.md §4.5
// policy 3: a folder that looked empty when the plan was built but has
// since gained a non-ignored file must not be deleted.
func TestVerifyStillPresentFailsafeTripsOnNewContent(t *testing.T) {
	mem := memfs.New("mem")
	mem.PutDir("/empty")
	folder := model.FileResource{Path: "/empty", Type: model.KindDirectory}

	ok, err := VerifyStillPresent(context.Background(), mem, folder, nil)
	require.NoError(t, err)
	require.True(t, ok)

	mem.PutFile("/empty/new.txt", []byte("x"), 1, "")
	ok, err = VerifyStillPresent(context.Background(), mem, folder, nil)
	require.NoError(t, err)
	require.False(t, ok)
}

// TestVerifyStillPresentFailsafeIgnoresSystemFiles covers the other half
// of policy 3: an appeared file that the ignore rules already treat as
// clutter must not itself block the deletion.
func TestVerifyStillPresentFailsafeIgnoresSystemFiles(t *testing.T) {
	mem := memfs.New("mem")
	mem.PutDir("/empty")
	mem.PutFile("/empty/.DS_Store", []byte("x"), 1, "")
	folder := model.FileResource{Path: "/empty", Type: model.KindDirectory}

	ok, err := VerifyStillPresent(context.Background(), mem, folder, syncignore.New(nil, nil))
	require.NoError(t, err)
	require.True(t, ok)
}
