package httpapi

import (
	"context"
	"net/http"

	"github.com/shah0006/syncd/apperr"
	"github.com/shah0006/syncd/comparator"
	"github.com/shah0006/syncd/logging"
	"github.com/shah0006/syncd/provider"
)

// compareState tracks the single in-flight (or most recently completed)
// comparator run.
type compareState struct {
	inProgress bool
	cancel     context.CancelFunc
	report     *comparator.Report
	left       provider.Provider
	right      provider.Provider
	err        error
}

type compareStartRequest struct {
	LeftPath  string `json:"left_path"`
	RightPath string `json:"right_path"`
	LeftMode  string `json:"left_mode"`
	RightMode string `json:"right_mode"`
}

// handleCompareStart runs a two-tree diff in the background.
func (s *Server) handleCompareStart(w http.ResponseWriter, r *http.Request) {
	log := logging.Sub("httpapi")
	var req compareStartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	if s.compare.inProgress {
		s.mu.Unlock()
		writeError(w, apperr.New(apperr.Conflict, "compare already in progress", nil))
		return
	}
	s.mu.Unlock()

	left, err := s.openProvider(req.LeftMode, req.LeftPath)
	if err != nil {
		writeError(w, err)
		return
	}
	right, err := s.openProvider(req.RightMode, req.RightPath)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.compare = compareState{inProgress: true, cancel: cancel, left: left, right: right}
	s.mu.Unlock()

	go func() {
		report, err := comparator.Compare(ctx, left, right, req.LeftPath, req.RightPath)
		s.mu.Lock()
		s.compare.inProgress = false
		if err != nil {
			s.compare.err = err
			log.Error("compare failed", "err", err)
		} else {
			s.compare.report = &report
			log.Info("compare completed", "only_left", len(report.OnlyInLeft), "only_right", len(report.OnlyInRight), "mismatched", len(report.SizeMismatched))
		}
		s.mu.Unlock()
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleCompareCancel(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.compare.inProgress && s.compare.cancel != nil {
		s.compare.cancel()
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

func (s *Server) handleCompareStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp := map[string]any{"in_progress": s.compare.inProgress}
	if s.compare.err != nil {
		resp["error"] = s.compare.err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompareResults(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	report := s.compare.report
	s.mu.Unlock()
	if report == nil {
		writeError(w, apperr.New(apperr.Fatal, "no compare results available; run /compare/start first", nil))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type compareExecuteRequest struct {
	DeleteIndices []int `json:"delete_indices"`
	CopyIndices   []int `json:"copy_indices"`
}

// handleCompareExecute runs the caller-selected subset of the last
// report: copy_indices refer to OnlyInLeft entries (moved right), and
// delete_indices refer to OnlyInRight entries (removed), per spec.md §6.
func (s *Server) handleCompareExecute(w http.ResponseWriter, r *http.Request) {
	var req compareExecuteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	report := s.compare.report
	left, right := s.compare.left, s.compare.right
	s.mu.Unlock()

	if report == nil || left == nil || right == nil {
		writeError(w, apperr.New(apperr.Fatal, "no compare results available; run /compare/start first", nil))
		return
	}

	errs := comparator.Execute(r.Context(), left, right, *report, req.CopyIndices, req.DeleteIndices)
	resp := map[string]any{"errors": len(errs)}
	if len(errs) > 0 {
		messages := make([]string, len(errs))
		for i, e := range errs {
			messages[i] = e.Error()
		}
		resp["details"] = messages
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCompareReset clears the comparator state so a new /compare/start
// call doesn't see stale results.
func (s *Server) handleCompareReset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.compare = compareState{}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"reset": true})
}
