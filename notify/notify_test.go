package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shah0006/syncd/config"
	"github.com/stretchr/testify/require"
)

func TestWebhookChannelSendsAndReportsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := &WebhookChannel{cfg: config.Webhook{Enabled: true, URL: srv.URL}}
	ok := ch.Send(context.Background(), "run completed", LevelInfo)
	require.True(t, ok)
}

func TestWebhookChannelWithoutURLFails(t *testing.T) {
	ch := &WebhookChannel{cfg: config.Webhook{}}
	require.False(t, ch.Send(context.Background(), "x", LevelInfo))
}

func TestEmailChannelWithoutRecipientsFails(t *testing.T) {
	ch := &EmailChannel{cfg: config.Email{}}
	require.False(t, ch.Send(context.Background(), "x", LevelError))
}

func TestManagerOnlyRegistersEnabledChannels(t *testing.T) {
	cfg := config.Config{
		Email:   config.Email{Enabled: false},
		Webhook: config.Webhook{Enabled: true, URL: "http://example.invalid"},
	}
	m := NewManager(cfg)
	require.Len(t, m.channels, 1)
}
