// Package httpapi exposes the operational API spec.md §6 names: status,
// tree navigation, scan/cancel/delete, conflict-copy management,
// comparator workflow, full-sync triggering, report export and
// auth/credentials/config management.
//
// Grounded on sync/handlers.go's handler style (a Handlers struct
// closing over its dependencies, per-handler component-tagged logging
// via the teacher's sub()/logging.Sub, JSON request/response bodies)
// generalized from the teacher's fixed entries/select/stats surface to
// the full spec.md §6 endpoint list, routed with gorilla/mux instead of
// the teacher's bare http.ServeMux so path-parameterized routes and
// method restriction don't need hand-rolled parsing.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/shah0006/syncd/apperr"
	"github.com/shah0006/syncd/config"
	"github.com/shah0006/syncd/eventbus"
	"github.com/shah0006/syncd/model"
	"github.com/shah0006/syncd/provider"
	"github.com/shah0006/syncd/store"
)

// Server holds every dependency the operational API's handlers need; it
// never touches a Provider's concrete backend type, only the interface.
type Server struct {
	mu         sync.Mutex
	cfg        config.Config
	cfgPath    string
	credsPath  string
	creds      config.Credentials
	st         *store.Store
	bus        *eventbus.Bus
	jwtSecret  []byte
	startedAt  float64
	nextRun    float64

	scan    scanState
	compare compareState
}

// New builds a Server. jwtSecret empty disables bearer-token enforcement
// (useful for local/dev deployments fronted by another auth layer).
func New(cfg config.Config, cfgPath string, creds config.Credentials, credsPath string, st *store.Store, bus *eventbus.Bus, jwtSecret []byte) *Server {
	return &Server{
		cfg: cfg, cfgPath: cfgPath, creds: creds, credsPath: credsPath,
		st: st, bus: bus, jwtSecret: jwtSecret, startedAt: nowSeconds(),
	}
}

// Router builds the mux.Router wiring every spec.md §6 endpoint,
// wrapped in the bearer-auth middleware when a JWT secret is configured.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.authMiddleware)

	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/subfolders", s.handleSubfolders).Methods(http.MethodGet)
	r.HandleFunc("/scan", s.handleScan).Methods(http.MethodPost)
	r.HandleFunc("/cancel", s.handleCancel).Methods(http.MethodPost)
	r.HandleFunc("/delete", s.handleDelete).Methods(http.MethodPost)
	r.HandleFunc("/conflicts", s.handleConflictsList).Methods(http.MethodGet)
	r.HandleFunc("/conflicts/delete", s.handleConflictsDelete).Methods(http.MethodPost)
	r.HandleFunc("/compare/start", s.handleCompareStart).Methods(http.MethodPost)
	r.HandleFunc("/compare/cancel", s.handleCompareCancel).Methods(http.MethodPost)
	r.HandleFunc("/compare/status", s.handleCompareStatus).Methods(http.MethodGet)
	r.HandleFunc("/compare/results", s.handleCompareResults).Methods(http.MethodPost)
	r.HandleFunc("/compare/execute", s.handleCompareExecute).Methods(http.MethodPost)
	r.HandleFunc("/compare/reset", s.handleCompareReset).Methods(http.MethodPost)
	r.HandleFunc("/sync/start", s.handleSyncStart).Methods(http.MethodPost)
	r.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/auth/exchange", s.handleAuthExchange).Methods(http.MethodPost)
	r.HandleFunc("/auth/test", s.handleAuthTest).Methods(http.MethodPost)
	r.HandleFunc("/credentials", s.handleCredentials).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/config", s.handleConfig).Methods(http.MethodGet, http.MethodPost)

	return r
}

// authMiddleware enforces a bearer JWT on every route when jwtSecret is
// set, grounded on the same "reject before the handler ever sees
// malformed input" posture sync/handlers.go's query-parsing guards use.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.jwtSecret) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			writeError(w, apperr.New(apperr.AuthExpired, "missing bearer token", nil))
			return
		}
		_, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			return s.jwtSecret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			writeError(w, apperr.New(apperr.AuthExpired, "invalid bearer token", err))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func nowSeconds() float64 { return float64(time.Now().UnixNano()) / float64(time.Second) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// errorBody is the §7 API-boundary error shape: {error_kind, message,
// request_id}.
type errorBody struct {
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// kindStatus maps the §7 taxonomy onto HTTP status codes.
func kindStatus(k apperr.Kind) int {
	switch k {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.AuthExpired:
		return http.StatusUnauthorized
	case apperr.RateLimited:
		return http.StatusTooManyRequests
	case apperr.Safety:
		return http.StatusConflict
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.Transient:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps any error to the §7 status/body pair. Errors that
// aren't already apperr-typed are treated as Fatal, matching
// apperr.KindOf's default.
func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	writeJSON(w, kindStatus(kind), errorBody{
		ErrorKind: string(kind),
		Message:   err.Error(),
		RequestID: uuid.NewString(),
	})
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return apperr.New(apperr.Fatal, "missing request body", nil)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.New(apperr.Fatal, "invalid request body", err)
	}
	return nil
}

// openProvider resolves a config "mode" string (plus a path/root) into a
// Provider, merging in per-mode credentials keyed "<mode>_<field>" from
// the credentials file. Dropbox/Google requests front through the
// webdavfs backend per DESIGN.md's Provider section.
func (s *Server) openProvider(modeName, rootPath string) (provider.Provider, error) {
	settings := map[string]string{"path": rootPath}
	prefix := modeName + "_"
	for k, v := range s.creds {
		if rest, ok := strings.CutPrefix(k, prefix); ok {
			settings[rest] = v
		}
	}

	registryMode := modeName
	switch modeName {
	case "dropbox", "google":
		registryMode = "webdav"
		if settings["url"] == "" {
			settings["url"] = s.creds[modeName+"_webdav_url"]
		}
	}

	p, err := provider.Open(registryMode, settings)
	if err != nil {
		return nil, apperr.New(apperr.Fatal, "open provider "+modeName, err)
	}
	return p, nil
}

// defaultProvider opens the single-pane provider named by the active
// config's Mode/LocalPath, used by endpoints that operate on "the"
// configured tree (scan, delete, conflicts) rather than an explicit pair.
func (s *Server) defaultProvider() (provider.Provider, error) {
	s.mu.Lock()
	mode, root := s.cfg.Mode, s.cfg.LocalPath
	s.mu.Unlock()
	return s.openProvider(mode, root)
}

func resultHistoryStatus(rh model.RunHistory) string { return string(rh.Status) }

// Config returns a snapshot of the active configuration, used by the
// scheduler (reading Schedule) and by tests.
func (s *Server) Config() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// UpdateConfig swaps in a freshly loaded configuration document, the
// callback config.Watch invokes on every hot-reload.
func (s *Server) UpdateConfig(cfg config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}
