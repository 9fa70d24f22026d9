// Package safety guards a Plan before execution: an absolute rejection
// for any canary-file action, a conjunctive deletion-threshold rejection
// (both count and percent must be exceeded), and a fail-safe
// re-verification step run immediately before each deletion actually
// happens, since a plan can go stale between being computed and being
// executed.
//
// Grounded on original_source/core/safety.py's SafetyMonitor.analyze_plan;
// the conjunctive threshold check (count AND percent, not OR) is
// preserved exactly from the Python predecessor. The re-verification
// idiom — re-check a snapshot against reality before trusting it — is
// the same one sync/fileops.go's SafeCopy uses to re-stat a source file
// immediately before the atomic rename.
package safety

import (
	"context"
	"fmt"
	"strings"

	"github.com/shah0006/syncd/apperr"
	"github.com/shah0006/syncd/model"
	"github.com/shah0006/syncd/provider"
	"github.com/shah0006/syncd/syncignore"
)

// DefaultCanaryFiles matches the Python predecessor's defaults.
var DefaultCanaryFiles = []string{".sys_canary", "canary.dat"}

// Config holds the Monitor's thresholds.
type Config struct {
	MaxDeletionsPercent float64
	MaxDeletionsCount   int
	CanaryFiles         []string
}

// DefaultConfig mirrors spec.md §4.5's defaults.
func DefaultConfig() Config {
	return Config{MaxDeletionsPercent: 10.0, MaxDeletionsCount: 50, CanaryFiles: DefaultCanaryFiles}
}

// Monitor evaluates plans against Config before they're allowed to run.
type Monitor struct {
	cfg Config
}

// New builds a Monitor; a zero-value Config falls back to DefaultConfig.
func New(cfg Config) *Monitor {
	if cfg.MaxDeletionsCount == 0 && cfg.MaxDeletionsPercent == 0 {
		cfg = DefaultConfig()
	}
	if len(cfg.CanaryFiles) == 0 {
		cfg.CanaryFiles = DefaultCanaryFiles
	}
	return &Monitor{cfg: cfg}
}

// AnalyzePlan returns an apperr.Safety error when plan violates either
// the canary rule or the deletion-threshold rule; nil means the plan may
// proceed.
func (m *Monitor) AnalyzePlan(plan model.Plan) error {
	for _, a := range plan.Actions {
		if a.Kind == model.ActionSkip {
			continue
		}
		for _, canary := range m.cfg.CanaryFiles {
			if strings.Contains(a.File.Path, canary) {
				return apperr.New(apperr.Safety, fmt.Sprintf("canary file modified: %s", a.File.Path), nil)
			}
		}
	}

	deleteCount := plan.Deletions
	total := plan.Total
	if deleteCount <= m.cfg.MaxDeletionsCount {
		return nil
	}

	percent := 100.0
	if total > 0 {
		percent = float64(deleteCount) / float64(total) * 100
	}
	if percent <= m.cfg.MaxDeletionsPercent {
		return nil
	}

	return apperr.New(apperr.Safety, fmt.Sprintf(
		"planning to delete %d files (%.1f%% of activity); limit is %d files / %.1f%%",
		deleteCount, percent, m.cfg.MaxDeletionsCount, m.cfg.MaxDeletionsPercent,
	), nil)
}

// VerifyStillPresent re-checks immediately before a deletion executes
// that the plan computed against an earlier snapshot still holds. A file
// gets a plain existence check. A folder gets spec.md §4.5 policy 3's
// fail-safe: an independent, short-circuited re-list of the folder's
// direct children, honoring ignore, that stops at the first non-ignored
// entry rather than collecting the whole listing — cheap even on a huge
// tree, and it catches content that appeared after the plan was built
// without requiring a full re-scan. Returns false (no error) both when
// the target has already vanished and when the fail-safe trips; either
// way the caller should skip the delete rather than fail the run.
func VerifyStillPresent(ctx context.Context, p provider.Provider, file model.FileResource, ignore *syncignore.Rules) (bool, error) {
	exists, err := p.Exists(ctx, file.Path)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	if file.Type != model.KindDirectory {
		return true, nil
	}

	seq, err := p.ListDir(ctx, file.Path, false)
	if err != nil {
		return false, err
	}
	defer seq.Close()

	for seq.Next(ctx) {
		r := seq.Resource()
		if r.Type == model.KindDirectory {
			if ignore.IsExcludedDir(r.Name) {
				continue
			}
		} else if ignore.IsSystemFile(r.Name) {
			continue
		}
		return false, nil // non-ignored entry appeared since the plan was built
	}
	return true, seq.Err()
}
