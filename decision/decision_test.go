package decision

import (
	"testing"

	"github.com/shah0006/syncd/model"
	"github.com/stretchr/testify/require"
)

// TestNewOnLeft is fixture S4: a file present only on the left with no
// prior FileState is new, not a deletion to propagate.
func TestNewOnLeft(t *testing.T) {
	left := model.FileResource{Path: "/n.txt", Size: 10}
	a := Decide("/n.txt", left, model.FileResource{}, true, false, model.FileState{}, false)
	require.Equal(t, model.CopyLeftToRight, a.Kind)
}

// TestDeletionPropagation is fixture S5: a file present only on the
// right but previously recorded in FileState means it was deleted on
// the left and the deletion must propagate to the right.
func TestDeletionPropagation(t *testing.T) {
	right := model.FileResource{Path: "/d.txt", Size: 10}
	state := model.FileState{Path: "/d.txt", Size: 10}
	a := Decide("/d.txt", model.FileResource{}, right, false, true, state, true)
	require.Equal(t, model.DeleteRight, a.Kind)
}

// TestConcurrentDivergence is fixture S6: both sides changed within the
// mtime tolerance window (or checksums differ) — a conflict, not a copy
// in either direction.
func TestConcurrentDivergence(t *testing.T) {
	left := model.FileResource{Path: "/c.txt", Size: 10, Mtime: 100, Chksum: "aaa"}
	right := model.FileResource{Path: "/c.txt", Size: 12, Mtime: 100.5, Chksum: "bbb"}
	a := Decide("/c.txt", left, right, true, true, model.FileState{}, false)
	require.Equal(t, model.ActionConflict, a.Kind)
}

func TestChecksumEqualityShortCircuitsMtime(t *testing.T) {
	left := model.FileResource{Path: "/x.txt", Mtime: 100, Chksum: "same"}
	right := model.FileResource{Path: "/x.txt", Mtime: 500, Chksum: "same"}
	a := Decide("/x.txt", left, right, true, true, model.FileState{}, false)
	require.Equal(t, model.ActionSkip, a.Kind)
}

func TestLeftNewerByMtimeBeyondTolerance(t *testing.T) {
	left := model.FileResource{Path: "/y.txt", Size: 1, Mtime: 100}
	right := model.FileResource{Path: "/y.txt", Size: 2, Mtime: 90}
	a := Decide("/y.txt", left, right, true, true, model.FileState{}, false)
	require.Equal(t, model.CopyLeftToRight, a.Kind)
}

func TestMtimeWithinToleranceIsIdentical(t *testing.T) {
	left := model.FileResource{Path: "/z.txt", Size: 4, Mtime: 100.0}
	right := model.FileResource{Path: "/z.txt", Size: 4, Mtime: 101.0}
	a := Decide("/z.txt", left, right, true, true, model.FileState{}, false)
	require.Equal(t, model.ActionSkip, a.Kind)
}

func TestAbsentOnBothSidesSkips(t *testing.T) {
	a := Decide("/gone.txt", model.FileResource{}, model.FileResource{}, false, false, model.FileState{}, false)
	require.Equal(t, model.ActionSkip, a.Kind)
}
