package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	p := writeTempConfig(t, "local_path: /data\n")
	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "json", cfg.ExportFormat)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "local", cfg.Mode)
	require.Equal(t, 50, cfg.MaxDeletionsCount)
}

func TestLoadParsesNestedSubmaps(t *testing.T) {
	p := writeTempConfig(t, `
mode: s3
schedule:
  enabled: true
  interval_hours: 6
email:
  enabled: true
  smtp_host: smtp.example.com
  smtp_port: 587
webhook:
  enabled: true
  url: https://hooks.example.com/syncd
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	require.True(t, cfg.Schedule.Enabled)
	require.Equal(t, 6.0, cfg.Schedule.IntervalHours)
	require.Equal(t, "smtp.example.com", cfg.Email.SMTPHost)
	require.Equal(t, "https://hooks.example.com/syncd", cfg.Webhook.URL)
}

func TestLoadMissingFileUsesDefaultsOnly(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Mode)
}

func TestLoadCredentials(t *testing.T) {
	p := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(p, []byte("dropbox_app_key: abc\ndropbox_refresh_token: xyz\n"), 0o644))

	creds, err := LoadCredentials(p)
	require.NoError(t, err)
	require.Equal(t, "abc", creds["dropbox_app_key"])
	require.Equal(t, "xyz", creds["dropbox_refresh_token"])
}
