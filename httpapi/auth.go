package httpapi

import (
	"net/http"
	"os"

	"github.com/spf13/viper"

	"github.com/shah0006/syncd/apperr"
	"github.com/shah0006/syncd/config"
	"github.com/shah0006/syncd/provider/cloudauth"
)

type authExchangeRequest struct {
	Provider string `json:"provider"` // "dropbox" | "google"
	Code     string `json:"code"`
}

// handleAuthExchange trades an OAuth2 authorization code for a token
// pair and persists it into the credentials file, per SPEC_FULL.md's
// supplemented auth feature.
func (s *Server) handleAuthExchange(w http.ResponseWriter, r *http.Request) {
	var req authExchangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ep, err := endpointFor(req.Provider)
	if err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	ep.ClientID = s.creds[req.Provider+"_app_key"]
	ep.ClientSecret = s.creds[req.Provider+"_app_secret"]
	s.mu.Unlock()

	tok, err := cloudauth.Exchange(r.Context(), ep, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	if s.creds == nil {
		s.creds = config.Credentials{}
	}
	s.creds[req.Provider+"_refresh_token"] = tok.RefreshToken
	s.mu.Unlock()
	if err := s.persistCredentials(); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "exchanged"})
}

type authTestRequest struct {
	Provider string `json:"provider"`
}

// handleAuthTest refreshes the stored token for provider and reports
// whether the credentials are still valid.
func (s *Server) handleAuthTest(w http.ResponseWriter, r *http.Request) {
	var req authTestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ep, err := endpointFor(req.Provider)
	if err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	ep.ClientID = s.creds[req.Provider+"_app_key"]
	ep.ClientSecret = s.creds[req.Provider+"_app_secret"]
	refreshToken := s.creds[req.Provider+"_refresh_token"]
	s.mu.Unlock()

	if refreshToken == "" {
		writeError(w, apperr.New(apperr.AuthExpired, "no stored refresh token for "+req.Provider, nil))
		return
	}

	if _, err := cloudauth.Refresh(r.Context(), ep, refreshToken); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func endpointFor(providerName string) (cloudauth.Endpoint, error) {
	switch providerName {
	case "dropbox":
		return cloudauth.Dropbox, nil
	case "google":
		return cloudauth.Google, nil
	default:
		return cloudauth.Endpoint{}, apperr.New(apperr.Fatal, "unknown auth provider "+providerName, nil)
	}
}

// handleCredentials returns (GET) or merges (POST) entries in the
// credentials key-value file; values are never echoed back on GET to
// avoid leaking secrets to the UI, only the known keys.
func (s *Server) handleCredentials(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.mu.Lock()
		keys := make([]string, 0, len(s.creds))
		for k := range s.creds {
			keys = append(keys, k)
		}
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
		return
	}

	var body map[string]string
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	if s.creds == nil {
		s.creds = config.Credentials{}
	}
	for k, v := range body {
		s.creds[k] = v
	}
	s.mu.Unlock()

	if err := s.persistCredentials(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

// handleConfig returns (GET) or updates and persists (POST) the active
// configuration document.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.mu.Lock()
		cfg := s.cfg
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, cfg)
		return
	}

	var updates map[string]any
	if err := decodeJSON(r, &updates); err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	v := viper.New()
	v.SetConfigFile(s.cfgPath)
	v.SetConfigType("yaml")
	_ = v.ReadInConfig()
	for k, val := range updates {
		v.Set(k, val)
	}
	if err := v.WriteConfigAs(s.cfgPath); err != nil {
		s.mu.Unlock()
		writeError(w, apperr.New(apperr.Fatal, "write config", err))
		return
	}
	cfg, err := config.Load(s.cfgPath)
	if err != nil {
		s.mu.Unlock()
		writeError(w, err)
		return
	}
	s.cfg = cfg
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, cfg)
}

// persistCredentials writes the in-memory credentials map back to the
// credentials file as YAML key-value pairs.
func (s *Server) persistCredentials() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := viper.New()
	for k, val := range s.creds {
		v.Set(k, val)
	}
	if s.credsPath == "" {
		return apperr.New(apperr.Fatal, "no credentials path configured", nil)
	}
	if _, err := os.Stat(s.credsPath); err != nil {
		if f, cerr := os.Create(s.credsPath); cerr == nil {
			f.Close()
		}
	}
	if err := v.WriteConfigAs(s.credsPath); err != nil {
		return apperr.New(apperr.Fatal, "write credentials", err)
	}
	return nil
}
