// Package hygiene scores a scan result's overall tidiness and collects
// the bytes a cleanup would reclaim, per spec.md §4.3. The conflict-copy
// matcher is pluggable (literal substrings or "re:"-prefixed regexes)
// per DESIGN.md's Open Question #2 decision, so a deployment with a
// different cloud backend's conflict-naming convention doesn't need a
// code change.
package hygiene

import (
	"regexp"
	"strings"

	"github.com/shah0006/syncd/model"
)

// DefaultConflictPatterns is spec.md's named pattern plus the
// sync-client convention the scanner has always also recognized, so the
// scan pass and any caller-supplied matcher agree on the same set.
var DefaultConflictPatterns = []string{" (conflicted copy)", ".sync-conflict-"}

// ConflictMatcher tests file names against a configured pattern set.
type ConflictMatcher struct {
	literals []string
	regexes  []*regexp.Regexp
}

// NewConflictMatcher builds a matcher from pattern strings; a "re:"
// prefix compiles the remainder as a regexp, anything else is matched as
// a case-sensitive substring. Empty patterns fall back to the default.
func NewConflictMatcher(patterns []string) *ConflictMatcher {
	if len(patterns) == 0 {
		patterns = DefaultConflictPatterns
	}
	m := &ConflictMatcher{}
	for _, p := range patterns {
		if rest, ok := strings.CutPrefix(p, "re:"); ok {
			if re, err := regexp.Compile(rest); err == nil {
				m.regexes = append(m.regexes, re)
			}
			continue
		}
		m.literals = append(m.literals, p)
	}
	return m
}

// Matches reports whether name looks like a conflict-copy artifact.
func (m *ConflictMatcher) Matches(name string) bool {
	for _, lit := range m.literals {
		if strings.Contains(name, lit) {
			return true
		}
	}
	for _, re := range m.regexes {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Score computes the hygiene score (0-100) and wasted-bytes total for a
// scan result per spec.md §4.3:
//
//	score = 100 - min(30, emptyRatio*100*0.6) - min(50, conflictRatio*100*5)
//
// floored at zero. emptyRatio is empty folders over all folders;
// conflictRatio is conflict files over all files. wasted bytes are the
// summed size of every conflict-copy file, since a folder with zero
// bytes wastes nothing beyond tidiness.
func Score(res model.ScanResult) (score int, wastedBytes int64) {
	totalFolders := len(res.AllFolders)
	totalFiles := len(res.Files)

	var emptyRatio, conflictRatio float64
	if totalFolders > 0 {
		emptyRatio = float64(len(res.EmptyFolders)) / float64(totalFolders)
	}
	if totalFiles > 0 {
		conflictRatio = float64(len(res.Conflicts)) / float64(totalFiles)
	}

	emptyPenalty := min64(30, emptyRatio*100*0.6)
	conflictPenalty := min64(50, conflictRatio*100*5)

	s := 100 - emptyPenalty - conflictPenalty
	if s < 0 {
		s = 0
	}

	for _, c := range res.Conflicts {
		wastedBytes += c.Size
	}

	return int(s), wastedBytes
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
