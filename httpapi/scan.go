package httpapi

import (
	"context"
	"net/http"

	"github.com/shah0006/syncd/apperr"
	"github.com/shah0006/syncd/config"
	"github.com/shah0006/syncd/eventbus"
	"github.com/shah0006/syncd/hygiene"
	"github.com/shah0006/syncd/logging"
	"github.com/shah0006/syncd/model"
	"github.com/shah0006/syncd/provider"
	"github.com/shah0006/syncd/safety"
	"github.com/shah0006/syncd/scanner"
	"github.com/shah0006/syncd/syncignore"
)

// scanState tracks the single in-flight (or most recently completed)
// scan, mirroring sync/daemon.go's busy-flag-guarded single-run model.
type scanState struct {
	inProgress bool
	cancel     context.CancelFunc
	result     *model.ScanResult
	err        error
}

type scanRequest struct {
	Folder string `json:"folder"`
}

// handleScan starts a background scan of the configured provider's
// folder (or the request's folder override) and returns immediately;
// progress is reported over the event bus, final results via GET
// /status or GET /export.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	log := logging.Sub("httpapi")
	var req scanRequest
	_ = decodeJSON(r, &req) // folder is optional; empty body is valid

	s.mu.Lock()
	if s.scan.inProgress {
		s.mu.Unlock()
		writeError(w, apperr.New(apperr.Conflict, "scan already in progress", nil))
		return
	}
	s.mu.Unlock()

	p, err := s.defaultProvider()
	if err != nil {
		writeError(w, err)
		return
	}

	root := req.Folder
	if root == "" {
		root = "/"
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.scan = scanState{inProgress: true, cancel: cancel}
	cfg := s.cfg
	s.mu.Unlock()

	go func() {
		res, err := s.scanTree(ctx, p, root, cfg)

		s.mu.Lock()
		s.scan.inProgress = false
		if err != nil {
			s.scan.err = err
			log.Error("scan failed", "root", root, "err", err)
		} else {
			s.scan.result = &res
			log.Info("scan completed", "root", root, "files", len(res.Files), "empty_folders", len(res.EmptyFolders))
		}
		s.mu.Unlock()

		s.bus.Publish(eventbus.RunEvent{Type: eventbus.EventRunCompleted, Path: root, Message: "scan complete"})
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// buildIgnoreRules turns config into the Rules every scan/delete path
// shares, so a folder excluded from a scan is excluded from the
// pre-delete fail-safe too.
func buildIgnoreRules(cfg config.Config) *syncignore.Rules {
	systemFiles := cfg.SystemFiles
	if !cfg.IgnoreSystemFiles {
		systemFiles = nil
	}
	return syncignore.New(systemFiles, cfg.ExcludePatterns)
}

// scanTree runs a scan and folds the hygiene score into the result,
// shared by handleScan's background goroutine and TriggerScan.
func (s *Server) scanTree(ctx context.Context, p provider.Provider, root string, cfg config.Config) (model.ScanResult, error) {
	opts := scanner.Options{
		Ignore:           buildIgnoreRules(cfg),
		ConflictPatterns: cfg.ConflictPatterns,
	}

	res, err := scanner.Scan(ctx, p, root, opts)
	if err != nil {
		return res, err
	}

	res.HygieneScore, res.WastedBytes = hygiene.Score(res)
	return res, nil
}

// TriggerScan runs one scan synchronously against the configured
// provider's root, recording the result exactly as /scan would. It is the
// scheduler package's Trigger callback: spec.md's schedule block is a
// periodic-scan control, not a two-provider sync, so there's no left/right
// pair to hand engine.Run here.
func (s *Server) TriggerScan(ctx context.Context) (float64, error) {
	s.mu.Lock()
	if s.scan.inProgress {
		s.mu.Unlock()
		return s.cfg.Schedule.LastRun, apperr.New(apperr.Conflict, "scan already in progress", nil)
	}
	cfg := s.cfg
	s.scan = scanState{inProgress: true}
	s.mu.Unlock()

	p, err := s.defaultProvider()
	if err != nil {
		s.mu.Lock()
		s.scan.inProgress = false
		s.mu.Unlock()
		return cfg.Schedule.LastRun, err
	}

	res, err := s.scanTree(ctx, p, "/", cfg)

	s.mu.Lock()
	s.scan.inProgress = false
	if err != nil {
		s.scan.err = err
	} else {
		s.scan.result = &res
	}
	s.mu.Unlock()

	if err != nil {
		return cfg.Schedule.LastRun, err
	}
	s.bus.Publish(eventbus.RunEvent{Type: eventbus.EventRunCompleted, Path: "/", Message: "scheduled scan complete"})
	return nowSeconds(), nil
}

// handleCancel cancels the current scan or comparator run, if any.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancelled := false
	if s.scan.inProgress && s.scan.cancel != nil {
		s.scan.cancel()
		cancelled = true
	}
	if s.compare.inProgress && s.compare.cancel != nil {
		s.compare.cancel()
		cancelled = true
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

// handleDelete deletes the empty folders produced by the latest scan,
// deepest-first, through the Safety Monitor.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	res := s.scan.result
	cfg := s.cfg
	s.mu.Unlock()

	if res == nil {
		writeError(w, apperr.New(apperr.Fatal, "no scan result available; run /scan first", nil))
		return
	}

	p, err := s.defaultProvider()
	if err != nil {
		writeError(w, err)
		return
	}

	var actions []model.Action
	for _, folder := range res.EmptyFolders {
		actions = append(actions, model.Action{Kind: model.DeleteLeft, File: model.FileResource{Path: folder, Type: model.KindDirectory}, Reason: "empty folder"})
	}
	plan := model.NewPlan(actions)

	mon := safety.New(safety.Config{
		MaxDeletionsPercent: cfg.MaxDeletionsPercent,
		MaxDeletionsCount:   cfg.MaxDeletionsCount,
		CanaryFiles:         cfg.CanaryFiles,
	})
	if err := mon.AnalyzePlan(plan); err != nil {
		writeError(w, err)
		return
	}

	ignore := buildIgnoreRules(cfg)
	deleted, failed := 0, 0
	ctx := r.Context()
	for _, a := range actions {
		present, err := safety.VerifyStillPresent(ctx, p, a.File, ignore)
		if err != nil || !present {
			continue
		}
		if err := p.Delete(ctx, a.File.Path, true); err != nil {
			failed++
			continue
		}
		deleted++
	}

	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted, "failed": failed})
}

// handleConflictsList returns the conflict-copy candidates from the
// latest scan.
func (s *Server) handleConflictsList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	res := s.scan.result
	s.mu.Unlock()
	if res == nil {
		writeJSON(w, http.StatusOK, map[string]any{"conflicts": []model.FileResource{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conflicts": res.Conflicts})
}

type conflictsDeleteRequest struct {
	Paths []string `json:"paths"`
}

// handleConflictsDelete deletes the caller-selected conflict-copy files,
// routed through the same Safety Monitor as any other deletion per
// SPEC_FULL.md's supplemented conflict-management feature.
func (s *Server) handleConflictsDelete(w http.ResponseWriter, r *http.Request) {
	var req conflictsDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	p, err := s.defaultProvider()
	if err != nil {
		writeError(w, err)
		return
	}

	var actions []model.Action
	for _, path := range req.Paths {
		actions = append(actions, model.Action{Kind: model.DeleteLeft, File: model.FileResource{Path: path}, Reason: "conflict copy"})
	}
	plan := model.NewPlan(actions)

	mon := safety.New(safety.Config{
		MaxDeletionsPercent: cfg.MaxDeletionsPercent,
		MaxDeletionsCount:   cfg.MaxDeletionsCount,
		CanaryFiles:         cfg.CanaryFiles,
	})
	if err := mon.AnalyzePlan(plan); err != nil {
		writeError(w, err)
		return
	}

	ignore := buildIgnoreRules(cfg)
	ctx := r.Context()
	deleted := 0
	for _, path := range req.Paths {
		present, err := safety.VerifyStillPresent(ctx, p, model.FileResource{Path: path, Type: model.KindFile}, ignore)
		if err != nil || !present {
			continue
		}
		if err := p.Delete(ctx, path, false); err == nil {
			deleted++
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}
