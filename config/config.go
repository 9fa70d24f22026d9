// Package config loads the daemon's YAML configuration document and a
// separate credentials key-value file via viper, the dependency the
// teacher's go.mod already carries for this concern. Every key named in
// spec.md §6's table has a matching field here; nested submaps
// (schedule, email, webhook) are modeled as their own structs so the
// rest of the engine never touches viper directly.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/shah0006/syncd/apperr"
)

// Schedule controls the periodic-scan scheduler.
type Schedule struct {
	Enabled        bool    `mapstructure:"enabled"`
	IntervalHours  float64 `mapstructure:"interval_hours"`
	LastRun        float64 `mapstructure:"last_run"`
}

// Email is the email notification sink's settings.
type Email struct {
	Enabled  bool   `mapstructure:"enabled"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// Webhook is the webhook notification sink's settings.
type Webhook struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// Config is the full recognized configuration document (spec.md §6).
type Config struct {
	IgnoreSystemFiles   bool     `mapstructure:"ignore_system_files"`
	SystemFiles         []string `mapstructure:"system_files"`
	ExcludePatterns     []string `mapstructure:"exclude_patterns"`
	ExportFormat        string   `mapstructure:"export_format"`
	Port                int      `mapstructure:"port"`
	Mode                string   `mapstructure:"mode"`
	LocalPath           string   `mapstructure:"local_path"`
	MaxDeletionsPercent float64  `mapstructure:"max_deletions_percent"`
	MaxDeletionsCount   int      `mapstructure:"max_deletions_count"`
	CanaryFiles         []string `mapstructure:"canary_files"`
	ConflictPatterns    []string `mapstructure:"conflict_patterns"`
	Schedule            Schedule `mapstructure:"schedule"`
	Email               Email    `mapstructure:"email"`
	Webhook             Webhook  `mapstructure:"webhook"`

	// DeepEqual is loaded from the deep_equal key, but no component reads
	// it: the decision package treats "exists on both, size equal" as
	// identical whether or not it is set.
	DeepEqual bool `mapstructure:"deep_equal"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("ignore_system_files", true)
	v.SetDefault("export_format", "json")
	v.SetDefault("port", 8080)
	v.SetDefault("mode", "local")
	v.SetDefault("max_deletions_percent", 10.0)
	v.SetDefault("max_deletions_count", 50)
	v.SetDefault("schedule.enabled", false)
	v.SetDefault("schedule.interval_hours", 24.0)
}

// Load reads the YAML configuration at path. Environment variables
// prefixed SYNCD_ override any key (SYNCD_PORT overrides "port", nested
// keys use underscores: SYNCD_SCHEDULE_ENABLED).
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("syncd")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	defaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, apperr.New(apperr.Fatal, "read config "+path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, apperr.New(apperr.Fatal, "parse config "+path, err)
	}
	return cfg, nil
}

// Credentials holds the out-of-band cloud API secrets: app key, app
// secret and refresh token equivalents for each configured backend,
// loaded from a separate file so they never land in the main config
// document or its version-controlled copies.
type Credentials map[string]string

// LoadCredentials reads the key-value credentials file at path.
func LoadCredentials(path string) (Credentials, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return Credentials{}, nil
		}
		return nil, apperr.New(apperr.Fatal, "read credentials "+path, err)
	}
	out := Credentials{}
	for _, key := range v.AllKeys() {
		out[key] = v.GetString(key)
	}
	return out, nil
}
