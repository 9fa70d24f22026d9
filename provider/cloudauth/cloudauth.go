// Package cloudauth implements the OAuth2 refresh-token exchange backing
// cloud providers' credential refresh, grounded on
// original_source/dropbox_auth.py's refresh-token-for-access-token flow
// and exposed at the httpapi POST /auth/exchange and POST /auth/test
// endpoints (SPEC_FULL.md's supplemented auth feature).
package cloudauth

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"github.com/shah0006/syncd/apperr"
)

// Endpoint names one provider's OAuth2 token endpoint.
type Endpoint struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
}

// Dropbox and Google are the two cloud connectors SPEC_FULL.md's
// webdavfs backend fronts; their token endpoints are fixed, only the
// client credentials vary per deployment.
var (
	Dropbox = Endpoint{AuthURL: "https://www.dropbox.com/oauth2/authorize", TokenURL: "https://api.dropboxapi.com/oauth2/token"}
	Google  = Endpoint{AuthURL: "https://accounts.google.com/o/oauth2/auth", TokenURL: "https://oauth2.googleapis.com/token"}
)

func (e Endpoint) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     e.ClientID,
		ClientSecret: e.ClientSecret,
		Endpoint:     oauth2.Endpoint{AuthURL: e.AuthURL, TokenURL: e.TokenURL},
	}
}

// Exchange trades an authorization code for a token pair, grounded on
// dropbox_auth.py's initial-exchange step.
func Exchange(ctx context.Context, ep Endpoint, code string) (*oauth2.Token, error) {
	tok, err := ep.config().Exchange(ctx, code)
	if err != nil {
		return nil, apperr.New(apperr.AuthExpired, "oauth2 code exchange failed", err)
	}
	return tok, nil
}

// Refresh trades a refresh token for a fresh access token. Its only
// caller is the /auth/test handler; a provider call that fails with
// apperr.AuthExpired does not trigger a refresh.
func Refresh(ctx context.Context, ep Endpoint, refreshToken string) (*oauth2.Token, error) {
	src := ep.config().TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, apperr.New(apperr.AuthExpired, "oauth2 refresh failed", err)
	}
	return tok, nil
}

// ExpiresSoon reports whether tok needs a refresh before use, leaving a
// 60-second margin for the request itself to complete.
func ExpiresSoon(tok *oauth2.Token) bool {
	if tok == nil || tok.Expiry.IsZero() {
		return false
	}
	return time.Until(tok.Expiry) < 60*time.Second
}
