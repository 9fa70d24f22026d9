// Package engine is the bidirectional reconciliation engine: one run
// scans both providers, asks the decision package for a per-path
// Action, validates the resulting Plan with the Safety Monitor, and
// (unless dry-run) hands it to the executor, updating the state store
// as each copy/delete lands.
//
// Grounded on original_source/core/engine.py's SyncEngine.sync — same
// four phases (scan both sides, decide, safety-check, execute) and the
// same run_history bracketing (start_run before planning, end_run with
// "failed" on any phase's error, "success" otherwise).
package engine

import (
	"context"
	"sort"

	"github.com/samber/lo"

	"github.com/shah0006/syncd/decision"
	"github.com/shah0006/syncd/eventbus"
	"github.com/shah0006/syncd/executor"
	"github.com/shah0006/syncd/logging"
	"github.com/shah0006/syncd/model"
	"github.com/shah0006/syncd/provider"
	"github.com/shah0006/syncd/safety"
	"github.com/shah0006/syncd/store"
)

// Options configures one run.
type Options struct {
	DryRun bool
	Safety safety.Config
	Exec   executor.Options
}

// Result summarizes one run for the caller (and the httpapi layer).
type Result struct {
	RunID int64
	Plan  model.Plan
	Exec  executor.Result
}

// Run executes one full scan-decide-safety-execute cycle against left
// and right, recording its outcome in st as run_history row RunID.
func Run(ctx context.Context, left, right provider.Provider, st *store.Store, bus *eventbus.Bus, opts Options) (Result, error) {
	log := logging.Sub("engine")

	runID, err := st.StartRun(ctx)
	if err != nil {
		return Result{}, err
	}
	log.Info("sync run started", "run_id", runID)

	plan, err := buildPlan(ctx, left, right, st, runID)
	if err != nil {
		st.EndRun(ctx, runID, model.RunFailed, 0)
		log.Error("sync run failed during planning", "run_id", runID, "err", err)
		bus.Publish(eventbus.RunEvent{Type: eventbus.EventRunFailed, RunID: runID, Message: err.Error()})
		return Result{RunID: runID}, err
	}

	mon := safety.New(opts.Safety)
	if err := mon.AnalyzePlan(plan); err != nil {
		st.EndRun(ctx, runID, model.RunFailed, 0)
		log.Error("sync run blocked by safety monitor", "run_id", runID, "err", err)
		bus.Publish(eventbus.RunEvent{Type: eventbus.EventSafetyBlocked, RunID: runID, Message: err.Error()})
		return Result{RunID: runID, Plan: plan}, err
	}

	bus.Publish(eventbus.RunEvent{Type: eventbus.EventPlanReady, RunID: runID, Total: plan.Total})

	if opts.DryRun {
		st.EndRun(ctx, runID, model.RunSuccess, 0)
		return Result{RunID: runID, Plan: plan}, nil
	}

	execOpts := opts.Exec
	userProgress := execOpts.OnProgress
	execOpts.OnProgress = func(p executor.Progress) {
		bus.Publish(eventbus.RunEvent{
			Type: eventbus.EventActionDone, RunID: runID,
			Path: p.Action.File.Path, Current: p.Current, Total: p.Total,
		})
		if p.Err == nil {
			updateState(ctx, st, runID, model.Plan{Actions: []model.Action{p.Action}})
		}
		if userProgress != nil {
			userProgress(p)
		}
	}

	execResult := executor.Run(ctx, left, right, plan, execOpts)

	status := model.RunSuccess
	evtType := eventbus.EventRunCompleted
	if execResult.Failed > 0 && execResult.Succeeded == 0 && execResult.Failed == plan.Total {
		status = model.RunFailed
		evtType = eventbus.EventRunFailed
	}
	if err := st.EndRun(ctx, runID, status, execResult.Succeeded); err != nil {
		log.Error("failed to record run completion", "run_id", runID, "err", err)
	}
	bus.Publish(eventbus.RunEvent{Type: evtType, RunID: runID, Total: plan.Total})
	log.Info("sync run finished", "run_id", runID, "succeeded", execResult.Succeeded, "failed", execResult.Failed)

	return Result{RunID: runID, Plan: plan, Exec: execResult}, nil
}

// buildPlan walks both providers in full and decides one Action per
// path. A Skip for a path present on both sides means the two sides are
// already identical, so its FileState is refreshed right here — exactly
// like engine.py's _decide calling self._update_db_state(left) on its
// size-equal skip branch — rather than being dropped. Without this, a
// pair that converges via Skip never gets a FileState row, and a later
// one-sided deletion would be misread as "new" instead of "deleted on
// the other side" (see decision.decideOneSided). Skips that aren't a
// both-sides match (the "absent on both sides" defensive case) carry no
// FileResource to persist and are simply dropped, since a Plan has
// nothing to act on for them either way.
func buildPlan(ctx context.Context, left, right provider.Provider, st *store.Store, runID int64) (model.Plan, error) {
	leftFiles, err := collect(ctx, left)
	if err != nil {
		return model.Plan{}, err
	}
	rightFiles, err := collect(ctx, right)
	if err != nil {
		return model.Plan{}, err
	}

	paths := lo.Uniq(append(lo.Keys(leftFiles), lo.Keys(rightFiles)...))
	sort.Strings(paths) // deterministic plan ordering across runs

	var actions []model.Action
	for _, path := range paths {
		lf, hasLeft := leftFiles[path]
		rf, hasRight := rightFiles[path]
		fs, hasState, err := st.GetFileState(ctx, path)
		if err != nil {
			return model.Plan{}, err
		}

		action := decision.Decide(path, lf, rf, hasLeft, hasRight, fs, hasState)
		if action.Kind == model.ActionSkip {
			if hasLeft && hasRight {
				if err := st.UpsertFileState(ctx, model.FileState{
					Path: path, ProviderID: "synced",
					Size: lf.Size, Mtime: lf.Mtime, Checksum: lf.Chksum,
					LastSeenRunID: runID,
				}); err != nil {
					return model.Plan{}, err
				}
			}
			continue
		}
		actions = append(actions, action)
	}
	return model.NewPlan(actions), nil
}

func collect(ctx context.Context, p provider.Provider) (map[string]model.FileResource, error) {
	seq, err := p.ListDir(ctx, "/", true)
	if err != nil {
		return nil, err
	}
	defer seq.Close()

	out := map[string]model.FileResource{}
	for seq.Next(ctx) {
		r := seq.Resource()
		if r.Type == model.KindDirectory {
			continue
		}
		out[r.Path] = r
	}
	return out, seq.Err()
}

// updateState folds the given actions' copies and deletes back into the
// state store (Run calls it once per successfully executed action) so the next run's decision table sees the new convergence
// point, grounded on engine.py's _update_db_state.
func updateState(ctx context.Context, st *store.Store, runID int64, plan model.Plan) {
	log := logging.Sub("engine")
	for _, a := range plan.Actions {
		switch a.Kind {
		case model.CopyLeftToRight, model.CopyRightToLeft:
			fs := model.FileState{
				Path: a.File.Path, ProviderID: "synced",
				Size: a.File.Size, Mtime: a.File.Mtime, Checksum: a.File.Chksum,
				LastSeenRunID: runID,
			}
			if err := st.UpsertFileState(ctx, fs); err != nil {
				log.Error("failed to persist file state", "path", a.File.Path, "err", err)
			}
		case model.DeleteLeft, model.DeleteRight:
			if err := st.DeleteFileState(ctx, a.File.Path); err != nil {
				log.Error("failed to clear file state", "path", a.File.Path, "err", err)
			}
		}
	}
}
