package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// LineWorksConfig holds the service-account credentials and endpoints
// for the LINE WORKS API. No process-wide singletons: the token source
// and gateway take this struct through their constructors.
type LineWorksConfig struct {
	// AuthURL is the OAuth2 token endpoint.
	AuthURL string `yaml:"auth_url" json:"auth_url"`
	// APIBaseURL is the REST API base (".../v1.0").
	APIBaseURL string `yaml:"api_base_url" json:"api_base_url"`

	ClientID       string `yaml:"client_id" json:"client_id"`
	ClientSecret   string `yaml:"client_secret" json:"client_secret"`
	ServiceAccount string `yaml:"service_account" json:"service_account"`
	// PrivateKeyPath points at the RS256 PEM key issued for the app.
	PrivateKeyPath string `yaml:"private_key_path" json:"private_key_path"`
	DomainID       string `yaml:"domain_id,omitempty" json:"domain_id,omitempty"`

	// UserID is the calendar owner whose events are reconciled.
	UserID string `yaml:"user_id" json:"user_id"`
}

// ShiftRuleConfig adds to or replaces entries of the built-in shift
// catalog. Timed rules whose end is at or before the start are treated
// as overnight.
type ShiftRuleConfig struct {
	Code   string `yaml:"code" json:"code"`
	AllDay bool   `yaml:"all_day,omitempty" json:"all_day,omitempty"`
	Start  string `yaml:"start,omitempty" json:"start,omitempty"` // "HH:MM"
	End    string `yaml:"end,omitempty" json:"end,omitempty"`     // "HH:MM"
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the status API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the status API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone the calendar lives in (e.g. "Asia/Tokyo").
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron-style schedule (e.g. "0 6 1 * *") for
	// daemon-mode reconciliation runs.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// OwnerTag identifies this process's events by title substring.
	OwnerTag string `yaml:"owner_tag" json:"owner_tag"`

	// PacingMS is the minimum spacing between successive calendar write
	// calls, in milliseconds. The remote API throttles bursts.
	PacingMS int `yaml:"pacing_ms" json:"pacing_ms"`

	// RosterPath is the default roster YAML file for scheduled runs.
	RosterPath string `yaml:"roster" json:"roster"`

	LineWorks LineWorksConfig `yaml:"lineworks" json:"lineworks"`

	// Shifts overrides/extends the built-in shift catalog.
	Shifts []ShiftRuleConfig `yaml:"shifts,omitempty" json:"shifts,omitempty"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "Asia/Tokyo",
		RefreshCron: "0 6 1 * *",
		PacingMS:    500,
		LineWorks: LineWorksConfig{
			AuthURL:    "https://auth.worksmobile.com/oauth2/v2.0/token",
			APIBaseURL: "https://www.worksapis.com/v1.0",
		},
	}
}

// Pacing returns the configured inter-call spacing as a duration.
func (c *Config) Pacing() time.Duration {
	return time.Duration(c.PacingMS) * time.Millisecond
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Tokyo"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "0 6 1 * *"
	}
	if c.PacingMS <= 0 {
		c.PacingMS = 500
	}
	if c.LineWorks.AuthURL == "" {
		c.LineWorks.AuthURL = "https://auth.worksmobile.com/oauth2/v2.0/token"
	}
	if c.LineWorks.APIBaseURL == "" {
		c.LineWorks.APIBaseURL = "https://www.worksapis.com/v1.0"
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600; the file carries API
//     credentials.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".shiftcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the
// package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
