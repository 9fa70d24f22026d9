// Package notify dispatches run-completion, run-failure and
// Safety-Monitor-rejection notifications to configured sinks. Grounded
// on original_source/core/notifications.py's Channel/NotificationManager
// split: each Channel is independent and a failure in one never stops
// the others, the manager just fans a message out.
//
// Both sinks are stdlib-backed (net/smtp, net/http) since no third-party
// mail or webhook-dispatch client appears anywhere in the example pack —
// see DESIGN.md for the justification.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"

	"github.com/shah0006/syncd/config"
	"github.com/shah0006/syncd/logging"
)

// Level mirrors the Python predecessor's "info"/"warning"/"error" tags.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Channel is one notification sink.
type Channel interface {
	Send(ctx context.Context, message string, level Level) bool
}

// Manager fans a notification out to every registered Channel,
// independently of the others' success or failure.
type Manager struct {
	channels []Channel
}

// NewManager builds a Manager from config, registering an EmailChannel
// and/or WebhookChannel per the "enabled" flags in each submap.
func NewManager(cfg config.Config) *Manager {
	m := &Manager{}
	if cfg.Email.Enabled {
		m.channels = append(m.channels, &EmailChannel{cfg: cfg.Email})
	}
	if cfg.Webhook.Enabled {
		m.channels = append(m.channels, &WebhookChannel{cfg: cfg.Webhook})
	}
	return m
}

// Notify sends message to every channel; failures are logged, not
// propagated, so one bad sink can't block a run from completing.
func (m *Manager) Notify(ctx context.Context, message string, level Level) {
	log := logging.Sub("notify")
	for _, ch := range m.channels {
		if !ch.Send(ctx, message, level) {
			log.Warn("notification channel failed", "level", level)
		}
	}
}

// EmailChannel sends via SMTP with STARTTLS, grounded on
// notifications.py's EmailChannel.
type EmailChannel struct {
	cfg config.Email
}

func (c *EmailChannel) Send(ctx context.Context, message string, level Level) bool {
	if c.cfg.To == "" || c.cfg.From == "" {
		return false
	}
	addr := fmt.Sprintf("%s:%d", c.cfg.SMTPHost, c.cfg.SMTPPort)
	subject := fmt.Sprintf("[%s] syncd notification", strings.ToUpper(string(level)))
	body := fmt.Sprintf("Subject: %s\r\nFrom: %s\r\nTo: %s\r\n\r\n%s\r\n",
		subject, c.cfg.From, c.cfg.To, message)

	err := smtp.SendMail(addr, nil, c.cfg.From, []string{c.cfg.To}, []byte(body))
	if err != nil {
		logging.Sub("notify").Error("email send failed", "err", err)
		return false
	}
	return true
}

// WebhookChannel posts a JSON payload, adapting to Slack's "text" field
// shape when the URL is a Slack webhook, grounded on notifications.py's
// WebhookChannel.
type WebhookChannel struct {
	cfg config.Webhook
}

func (c *WebhookChannel) Send(ctx context.Context, message string, level Level) bool {
	if c.cfg.URL == "" {
		return false
	}

	var payload map[string]string
	if strings.Contains(c.cfg.URL, "slack.com") {
		payload = map[string]string{"text": fmt.Sprintf("[%s] %s", strings.ToUpper(string(level)), message)}
	} else {
		payload = map[string]string{
			"content":  fmt.Sprintf("**[%s]** %s", strings.ToUpper(string(level)), message),
			"username": "syncd",
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "syncd/1.0")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logging.Sub("notify").Error("webhook send failed", "err", err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
