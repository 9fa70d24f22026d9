package httpapi

import (
	"net/http"

	"github.com/shah0006/syncd/apperr"
	"github.com/shah0006/syncd/model"
)

type statusResponse struct {
	Uptime           float64           `json:"uptime_seconds"`
	Mode             string            `json:"mode"`
	ScanInProgress   bool              `json:"scan_in_progress"`
	CompareInProgress bool             `json:"compare_in_progress"`
	LastScan         *scanSummary      `json:"last_scan,omitempty"`
	LastScanError    string            `json:"last_scan_error,omitempty"`
	RecentRuns       []runSummary      `json:"recent_runs"`
	NextScheduledRun float64           `json:"next_scheduled_run"`
}

type scanSummary struct {
	Root           string `json:"root"`
	Files          int    `json:"files"`
	EmptyFolders   int    `json:"empty_folders"`
	Conflicts      int    `json:"conflicts"`
	HygieneScore   int    `json:"hygiene_score"`
	WastedBytes    int64  `json:"wasted_bytes"`
	ScanDurationMs int64  `json:"scan_duration_ms"`
}

type runSummary struct {
	ID             int64  `json:"id"`
	Status         string `json:"status"`
	StartTime      float64 `json:"start_time"`
	EndTime        float64 `json:"end_time"`
	FilesProcessed int    `json:"files_processed"`
}

// handleStatus reports connection, scan/delete/compare progress, counts
// and the next scheduled run, per spec.md §6.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := statusResponse{
		Uptime:            nowSeconds() - s.startedAt,
		Mode:              s.cfg.Mode,
		ScanInProgress:    s.scan.inProgress,
		CompareInProgress: s.compare.inProgress,
		NextScheduledRun:  s.cfg.Schedule.LastRun + s.cfg.Schedule.IntervalHours*3600,
	}
	if s.scan.result != nil {
		res := s.scan.result
		resp.LastScan = &scanSummary{
			Root: res.Root, Files: len(res.Files), EmptyFolders: len(res.EmptyFolders),
			Conflicts: len(res.Conflicts), HygieneScore: res.HygieneScore,
			WastedBytes: res.WastedBytes, ScanDurationMs: res.ScanDurationMs,
		}
	}
	if s.scan.err != nil {
		resp.LastScanError = s.scan.err.Error()
	}
	s.mu.Unlock()

	runs, err := s.st.ListRuns(r.Context(), 20, 0)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, rh := range runs {
		resp.RecentRuns = append(resp.RecentRuns, runSummary{
			ID: rh.ID, Status: resultHistoryStatus(rh), StartTime: rh.StartTime,
			EndTime: rh.EndTime, FilesProcessed: rh.FilesProcessed,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type subfolderEntry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
}

// handleSubfolders returns a shallow listing of path under mode's
// provider, for tree-navigation UIs.
func (s *Server) handleSubfolders(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		path = "/"
	}
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		s.mu.Lock()
		mode = s.cfg.Mode
		s.mu.Unlock()
	}

	p, err := s.openProvider(mode, path)
	if err != nil {
		writeError(w, err)
		return
	}

	seq, err := p.ListDir(r.Context(), path, false)
	if err != nil {
		writeError(w, apperr.New(apperr.Transient, "list "+path, err))
		return
	}
	defer seq.Close()

	var entries []subfolderEntry
	for seq.Next(r.Context()) {
		res := seq.Resource()
		entries = append(entries, subfolderEntry{
			Name: res.Name, Path: res.Path, IsDir: res.Type == model.KindDirectory,
		})
	}
	if err := seq.Err(); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
