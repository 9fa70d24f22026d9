package httpapi

import (
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/shah0006/syncd/apperr"
)

// handleExport streams the latest scan result as a report in the
// requested format, defaulting to the configured export_format.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	res := s.scan.result
	format := r.URL.Query().Get("format")
	if format == "" {
		format = s.cfg.ExportFormat
	}
	s.mu.Unlock()

	if res == nil {
		writeError(w, apperr.New(apperr.Fatal, "no scan result available; run /scan first", nil))
		return
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="syncd-report-%d.csv"`, int64(nowSeconds())))
		cw := csv.NewWriter(w)
		cw.Write([]string{"path", "size", "mtime", "type"}) //nolint:errcheck
		for _, f := range res.Files {
			cw.Write([]string{f.Path, fmt.Sprint(f.Size), fmt.Sprint(f.Mtime), string(f.Type)}) //nolint:errcheck
		}
		for _, folder := range res.EmptyFolders {
			cw.Write([]string{folder, "0", "0", "empty_directory"}) //nolint:errcheck
		}
		cw.Flush()
	default:
		writeJSON(w, http.StatusOK, res)
	}
}
