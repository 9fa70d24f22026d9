package httpapi

import (
	"context"
	"net/http"

	"github.com/shah0006/syncd/engine"
	"github.com/shah0006/syncd/executor"
	"github.com/shah0006/syncd/eventbus"
	"github.com/shah0006/syncd/logging"
	"github.com/shah0006/syncd/safety"
)

type syncStartRequest struct {
	LeftPath  string  `json:"left_path"`
	RightPath string  `json:"right_path"`
	LeftMode  string  `json:"left_mode"`
	RightMode string  `json:"right_mode"`
	DryRun    bool    `json:"dry_run"`
	Compress  bool    `json:"compress"`
	RateLimit float64 `json:"rate_limit_per_sec"` // 0 = unlimited
}

// handleSyncStart runs one full bidirectional engine pass in the
// background and streams its progress over the event bus.
func (s *Server) handleSyncStart(w http.ResponseWriter, r *http.Request) {
	log := logging.Sub("httpapi")
	var req syncStartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

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

	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	opts := engine.Options{
		DryRun: req.DryRun,
		Safety: safety.Config{
			MaxDeletionsPercent: cfg.MaxDeletionsPercent,
			MaxDeletionsCount:   cfg.MaxDeletionsCount,
			CanaryFiles:         cfg.CanaryFiles,
		},
		Exec: executor.Options{Compress: req.Compress, RateLimit: req.RateLimit, Ignore: buildIgnoreRules(cfg)},
	}

	go func() {
		res, err := engine.Run(context.Background(), left, right, s.st, s.bus, opts)
		if err != nil {
			log.Error("sync run failed", "err", err)
			s.bus.Publish(eventbus.RunEvent{Type: eventbus.EventRunFailed, RunID: res.RunID, Message: err.Error()})
			return
		}
		log.Info("sync run dispatched", "run_id", res.RunID, "total_actions", res.Plan.Total)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}
