// Package decision implements the three-way reconciliation engine:
// given a path's left-side resource, right-side resource and persisted
// FileState (the last point the two sides were known identical), it
// decides the single Action to take.
//
// Grounded on original_source/core/engine.py's _decide — the Go version
// keeps the same case split (both sides, left-only, right-only) but adds
// the checksum-preempts-mtime rule from DESIGN.md's Open Question #1:
// when both sides report a checksum, equality short-circuits before
// mtime is consulted at all, and inequality is an immediate conflict
// regardless of mtime.
package decision

import (
	"math"

	"github.com/shah0006/syncd/model"
)

// MtimeTolerance is the fuzzy window (seconds) within which two mtimes
// are treated as equal, per spec.md §4.4.
const MtimeTolerance = 2.0

// Decide returns the Action for one path given both sides' resources
// (either may be the zero value when absent — check hasLeft/hasRight)
// and the last-synced FileState (hasState false when never recorded).
func Decide(path string, left, right model.FileResource, hasLeft, hasRight bool, state model.FileState, hasState bool) model.Action {
	switch {
	case hasLeft && hasRight:
		return decideBothSides(left, right)
	case hasLeft && !hasRight:
		return decideOneSided(left, model.CopyLeftToRight, model.DeleteLeft, hasState, "Left")
	case hasRight && !hasLeft:
		return decideOneSided(right, model.CopyRightToLeft, model.DeleteRight, hasState, "Right")
	default:
		return model.Action{Kind: model.ActionSkip, Reason: "absent on both sides"}
	}
}

func decideBothSides(left, right model.FileResource) model.Action {
	if left.HasChecksum() && right.HasChecksum() {
		if left.Chksum == right.Chksum {
			return model.Action{Kind: model.ActionSkip, File: left, Reason: "checksums match"}
		}
		return model.Action{Kind: model.ActionConflict, File: left, Reason: "checksums differ"}
	}

	if left.Size == right.Size && !left.HasChecksum() && !right.HasChecksum() {
		return model.Action{Kind: model.ActionSkip, File: left, Reason: "identical size, no checksum available"}
	}

	if within(left.Mtime, right.Mtime) {
		return model.Action{Kind: model.ActionConflict, File: left, Reason: "divergent content, indistinguishable mtime"}
	}
	if left.Mtime > right.Mtime {
		return model.Action{Kind: model.CopyLeftToRight, File: left, Reason: "left is newer"}
	}
	return model.Action{Kind: model.CopyRightToLeft, File: right, Reason: "right is newer"}
}

// decideOneSided disambiguates "new on the present side" from "deleted
// on the absent side" using whether the path was ever recorded as
// synced: a FileState row means the absent side had this file before,
// so its disappearance is a deletion to propagate; no row means the
// present side's copy is genuinely new.
func decideOneSided(present model.FileResource, copyKind, deleteKind model.ActionKind, hasState bool, sideName string) model.Action {
	if hasState {
		return model.Action{Kind: deleteKind, File: present, Reason: "deleted on the other side"}
	}
	return model.Action{Kind: copyKind, File: present, Reason: "new on " + sideName}
}

// within reports whether a and b are equal within the mtime tolerance,
// used by decideBothSides to tell "divergent, can't tell who's newer"
// apart from an ordinary newer-wins copy.
func within(a, b float64) bool {
	return math.Abs(a-b) <= MtimeTolerance
}
