// Package syncignore implements the scanner's ignore rules: system-file
// patterns that make a folder look empty even though it contains
// clutter, and folder-exclude names whose subtrees are never descended.
package syncignore

import (
	"path/filepath"
	"strings"
)

// DefaultSystemFiles is the default system-file ignore set (spec.md §4.3).
var DefaultSystemFiles = []string{
	".DS_Store", "Thumbs.db", "desktop.ini", ".dropbox", ".dropbox.attr",
	"Icon\r", "Icon", ".localized", "*.alias", "*.lnk", "*.symlink",
}

// DefaultExcludeDirs is the default folder-exclude set (spec.md §4.3).
var DefaultExcludeDirs = []string{
	".git", "node_modules", "__pycache__", ".venv", ".env",
}

// Rules holds the active ignore configuration for one scan.
type Rules struct {
	systemFiles []string // stored as given; IsSystemFile lowercases both sides when comparing
	excludeDirs map[string]struct{}
}

// New builds a Rules set. Empty slices fall back to the package defaults
// so callers can pass config.SystemFiles/ExcludePatterns straight through.
func New(systemFiles, excludeDirs []string) *Rules {
	if len(systemFiles) == 0 {
		systemFiles = DefaultSystemFiles
	}
	if len(excludeDirs) == 0 {
		excludeDirs = DefaultExcludeDirs
	}
	ex := make(map[string]struct{}, len(excludeDirs))
	for _, d := range excludeDirs {
		ex[strings.ToLower(d)] = struct{}{}
	}
	return &Rules{systemFiles: systemFiles, excludeDirs: ex}
}

// IsSystemFile reports whether name matches a configured system-file
// pattern (literal, case-insensitive, or shell-glob).
func (r *Rules) IsSystemFile(name string) bool {
	if r == nil {
		return false
	}
	lower := strings.ToLower(name)
	for _, pat := range r.systemFiles {
		if !strings.ContainsAny(pat, "*?") {
			if strings.ToLower(pat) == lower {
				return true
			}
			continue
		}
		if matched, _ := filepath.Match(strings.ToLower(pat), lower); matched {
			return true
		}
	}
	return false
}

// IsExcludedDir reports whether a directory's final path segment is in
// the folder-exclude set; its subtree must not be descended at all.
func (r *Rules) IsExcludedDir(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.excludeDirs[strings.ToLower(name)]
	return ok
}
